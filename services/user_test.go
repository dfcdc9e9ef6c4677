package services

import (
	"testing"
)

func TestToggleID_Parity(t *testing.T) {
	ids := []string{"P1", "P2"}

	// An even number of toggles restores the original membership, an odd
	// number flips it.
	for n := 1; n <= 6; n++ {
		result := append([]string(nil), ids...)
		var present bool
		for i := 0; i < n; i++ {
			result, present = toggleID(result, "P3")
		}
		wantPresent := n%2 == 1
		if present != wantPresent {
			t.Errorf("after %d toggles present = %v, want %v", n, present, wantPresent)
		}
		if containsStr(result, "P3") != wantPresent {
			t.Errorf("after %d toggles membership = %v, want %v", n, containsStr(result, "P3"), wantPresent)
		}
	}
}

func TestToggleID_RemovesExisting(t *testing.T) {
	ids, present := toggleID([]string{"P1", "P2", "P3"}, "P2")
	if present {
		t.Error("toggle of existing id reported present")
	}
	if len(ids) != 2 || containsStr(ids, "P2") {
		t.Errorf("ids = %v, want [P1 P3]", ids)
	}
}

func TestToggleID_CollapsesDuplicates(t *testing.T) {
	// Legacy rows may carry duplicates; one off-toggle removes all of them
	ids, present := toggleID([]string{"P1", "P1", "P2"}, "P1")
	if present || containsStr(ids, "P1") {
		t.Errorf("ids = %v, duplicates survived the toggle", ids)
	}
}

func TestToggleID_EmptyList(t *testing.T) {
	ids, present := toggleID(nil, "P1")
	if !present || len(ids) != 1 || ids[0] != "P1" {
		t.Errorf("toggle on empty list = %v (present %v), want [P1] true", ids, present)
	}
}
