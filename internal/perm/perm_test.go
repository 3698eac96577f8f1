package perm

import "testing"

func TestAllows(t *testing.T) {
	cases := []struct {
		have Permission
		need Permission
		want bool
	}{
		{View, View, true},
		{View, Edit, false},
		{Edit, View, true},
		{Edit, Edit, true},
		{"", View, false},
		{"owner", Edit, false},
	}
	for _, tc := range cases {
		if got := Allows(tc.have, tc.need); got != tc.want {
			t.Fatalf("Allows(%q, %q) = %v, want %v", tc.have, tc.need, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("edit") != Edit {
		t.Fatalf("expected edit to survive normalization")
	}
	if Normalize("admin") != View {
		t.Fatalf("expected unknown value to normalize to view")
	}
	if Normalize("") != View {
		t.Fatalf("expected empty value to normalize to view")
	}
}
