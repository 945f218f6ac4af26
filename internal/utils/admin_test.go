package utils

import "testing"

func TestIsAdmin(t *testing.T) {
	admins := []int64{42, 1001}

	if !IsAdmin(42, admins) {
		t.Error("expected 42 to be an admin")
	}
	if IsAdmin(7, admins) {
		t.Error("expected 7 not to be an admin")
	}
	if IsAdmin(0, []int64{0}) {
		t.Error("expected zero id to never be an admin")
	}
	if IsAdmin(42, nil) {
		t.Error("expected empty allow-list to deny everyone")
	}
}
