package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleManager, true},
		{RoleAdmin, RoleStaff, true},
		{RoleManager, RoleAdmin, false},
		{RoleManager, RoleManager, true},
		{RoleManager, RoleStaff, true},
		{RoleStaff, RoleAdmin, false},
		{RoleStaff, RoleManager, false},
		{RoleStaff, RoleStaff, true},
		// Unknown roles fail-closed.
		{"unknown", RoleStaff, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleStaff, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleAdmin, RoleManager, RoleStaff} {
		if !ValidRole(r) {
			t.Errorf("ValidRole(%q) = false, want true", r)
		}
	}
	if ValidRole("user") {
		t.Error("ValidRole(\"user\") = true, want false")
	}
}

func TestPaymentTypeValid(t *testing.T) {
	tests := []struct {
		typ  string
		want bool
	}{
		{PaymentInterest, true},
		{PaymentPartial, true},
		{PaymentRedemption, true},
		{"refund", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidPaymentType(tt.typ); got != tt.want {
			t.Errorf("ValidPaymentType(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}
