package entities

// Token is the authenticated credential attached to an access context.
// An empty UserID and AppID means the caller is unauthenticated.
type Token struct {
	ID     string
	UserID string
	AppID  string
	Scopes []string
}

// DefaultScope is assumed when a token or a context declares no scopes.
const DefaultScope = "DEFAULT"

// AccessContext carries everything known about one access check: the
// principal set being evaluated, the token, and the resource coordinates.
type AccessContext struct {
	Principals []Principal
	Token      *Token

	Model      string
	ModelID    string
	Property   string
	AccessType AccessType

	// Scopes required to perform the requested operation. Empty means the
	// default scope.
	Scopes []string
}

// IsAuthenticated reports whether the context carries an authenticated
// user or application principal.
func (c AccessContext) IsAuthenticated() bool {
	if c.Token != nil && (c.Token.UserID != "" || c.Token.AppID != "") {
		return true
	}
	for _, p := range c.Principals {
		if (p.Type == PrincipalUser || p.Type == PrincipalApp) && p.ID != "" {
			return true
		}
	}
	return false
}

// UserID returns the first user principal id, or the token user id.
func (c AccessContext) UserID() string {
	for _, p := range c.Principals {
		if p.Type == PrincipalUser && p.ID != "" {
			return p.ID
		}
	}
	if c.Token != nil {
		return c.Token.UserID
	}
	return ""
}

// AppID returns the first application principal id, or the token app id.
func (c AccessContext) AppID() string {
	for _, p := range c.Principals {
		if p.Type == PrincipalApp && p.ID != "" {
			return p.ID
		}
	}
	if c.Token != nil {
		return c.Token.AppID
	}
	return ""
}

// RequiredScopes returns the scopes the operation demands, defaulting to
// the default scope.
func (c AccessContext) RequiredScopes() []string {
	if len(c.Scopes) == 0 {
		return []string{DefaultScope}
	}
	return c.Scopes
}

// TokenScopes returns the scopes the token authorizes, defaulting to the
// default scope.
func (c AccessContext) TokenScopes() []string {
	if c.Token == nil || len(c.Token.Scopes) == 0 {
		return []string{DefaultScope}
	}
	return c.Token.Scopes
}

// HasAuthorizedScope reports whether the token scope set intersects the
// required scope set. The scope gate precedes all rule evaluation.
func (c AccessContext) HasAuthorizedScope() bool {
	required := c.RequiredScopes()
	for _, have := range c.TokenScopes() {
		for _, want := range required {
			if have == want {
				return true
			}
		}
	}
	return false
}
