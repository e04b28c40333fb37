package entities

// AccessType classifies the operation being attempted on a model.
type AccessType string

const (
	AccessRead      AccessType = "READ"
	AccessWrite     AccessType = "WRITE"
	AccessExecute   AccessType = "EXECUTE"
	AccessReplicate AccessType = "REPLICATE"
	AccessAll       AccessType = "*"
)

// Permission is the outcome attached to a rule or a resolved request.
type Permission string

const (
	PermissionAllow   Permission = "ALLOW"
	PermissionDeny    Permission = "DENY"
	PermissionAlarm   Permission = "ALARM"
	PermissionAudit   Permission = "AUDIT"
	PermissionDefault Permission = "DEFAULT"
)

// PrincipalType classifies the identity a rule is granted to.
type PrincipalType string

const (
	PrincipalUser  PrincipalType = "USER"
	PrincipalApp   PrincipalType = "APP"
	PrincipalRole  PrincipalType = "ROLE"
	PrincipalScope PrincipalType = "SCOPE"
)

// Built-in role names. Custom roles use any other name.
const (
	RoleOwner           = "$owner"
	RoleRelated         = "$related"
	RoleAuthenticated   = "$authenticated"
	RoleUnauthenticated = "$unauthenticated"
	RoleEveryone        = "$everyone"
)

// Wildcard matches any model, property, or method name.
const Wildcard = "*"

// AccessRequest is the canonical form of one access question. It is built
// once per resolution pass and treated as immutable by the scorer; the
// resolver returns a copy carrying the final permission.
type AccessRequest struct {
	Model      string
	Property   string
	AccessType AccessType
	Permission Permission

	// MethodNames holds recognized aliases for the requested property so a
	// rule declared against an alias still matches.
	MethodNames []string

	// DefaultPermission is the model-configured permission used to elucidate
	// a DEFAULT resolution into a concrete ALLOW/DENY.
	DefaultPermission Permission
}

// NewAccessRequest normalizes empty property/accessType to wildcards and
// starts the request at DEFAULT.
func NewAccessRequest(model, property string, accessType AccessType) AccessRequest {
	if property == "" {
		property = Wildcard
	}
	if accessType == "" {
		accessType = AccessAll
	}
	return AccessRequest{
		Model:      model,
		Property:   property,
		AccessType: accessType,
		Permission: PermissionDefault,
	}
}

// IsWildcard reports whether the request asks about all access types.
func (r AccessRequest) IsWildcard() bool {
	return r.AccessType == AccessAll
}

// IsAllowed reports whether the resolved permission grants access.
func (r AccessRequest) IsAllowed() bool {
	return r.Permission == PermissionAllow
}
