package entities

import "testing"

func TestKindDerivation(t *testing.T) {
	cases := []struct {
		name string
		rev  string
		prev string
		want ChangeKind
	}{
		{"create", "r1", "", ChangeCreate},
		{"update", "r2", "r1", ChangeUpdate},
		{"delete", "", "r1", ChangeDelete},
		{"unknown", "", "", ChangeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			change := Change{Rev: tc.rev, Prev: tc.prev}
			if got := change.Kind(); got != tc.want {
				t.Fatalf("Kind() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRevisionIsDeterministic(t *testing.T) {
	a := Document{"id": "1", "name": "alpha", "count": 3}
	b := Document{"count": 3, "name": "alpha", "id": "1"}
	if Revision(a) != Revision(b) {
		t.Fatal("equal documents must hash to the same revision")
	}
	c := Document{"id": "1", "name": "beta", "count": 3}
	if Revision(a) == Revision(c) {
		t.Fatal("different documents must hash to different revisions")
	}
}

func TestChangeIDIsStablePerEntity(t *testing.T) {
	if ChangeID("Customer", "42") != ChangeID("Customer", "42") {
		t.Fatal("change id must be deterministic")
	}
	if ChangeID("Customer", "42") == ChangeID("Order", "42") {
		t.Fatal("change id must incorporate the model name")
	}
}

func TestConflictsWithIsSymmetric(t *testing.T) {
	samples := []Change{
		{Rev: "r1"},
		{Rev: "r2"},
		{Rev: "r2", Prev: "r1"},
		{Rev: "r3", Prev: "r2"},
		{Rev: "r3", Prev: "rX"},
		{Prev: "r1"},
		{Prev: "r9"},
		{},
	}
	for i, a := range samples {
		for j, b := range samples {
			if a.ConflictsWith(b) != b.ConflictsWith(a) {
				t.Fatalf("conflict relation asymmetric for samples %d and %d", i, j)
			}
		}
	}
}

func TestConflictRules(t *testing.T) {
	cases := []struct {
		name string
		a, b Change
		want bool
	}{
		{"identical creates agree", Change{Rev: "r1"}, Change{Rev: "r1"}, false},
		{"divergent creates conflict", Change{Rev: "r1"}, Change{Rev: "r2"}, true},
		{"both deletes agree", Change{Prev: "r1"}, Change{Prev: "r2"}, false},
		{"delete against update conflicts", Change{Prev: "r1"}, Change{Rev: "r2", Prev: "r1"}, true},
		{"descendant update agrees", Change{Rev: "r2", Prev: "r1"}, Change{Rev: "r1", Prev: "r0"}, false},
		{"divergent updates conflict", Change{Rev: "r2", Prev: "r1"}, Change{Rev: "r3", Prev: "r1x"}, true},
		{"create folded into update", Change{Rev: "r2"}, Change{Rev: "r3", Prev: "r1"}, false},
		{"unknown always conflicts", Change{}, Change{Rev: "r1"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.ConflictsWith(tc.b); got != tc.want {
				t.Fatalf("ConflictsWith = %v, want %v", got, tc.want)
			}
		})
	}
}
