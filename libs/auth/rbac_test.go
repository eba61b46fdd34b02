package auth

import "testing"

func TestAllowed(t *testing.T) {
	cases := []struct {
		role     string
		action   string
		resource string
		want     bool
	}{
		{RoleAdmin, ActionDelete, ResourceUsers, true},
		{RoleManager, ActionWrite, ResourceInventory, true},
		{RoleManager, ActionWrite, ResourceUsers, false},
		{RoleReceptionist, ActionWrite, ResourceAppointments, true},
		{RoleReceptionist, ActionDelete, ResourceAppointments, false},
		{RoleReceptionist, ActionRead, ResourceReports, false},
		{RoleProfessional, ActionWrite, ResourceTimeclock, true},
		{RoleProfessional, ActionWrite, ResourceAppointments, false},
		{"unknown", ActionRead, ResourceSlots, false},
	}
	for _, c := range cases {
		if got := Allowed(c.role, c.action, c.resource); got != c.want {
			t.Fatalf("Allowed(%s, %s, %s) = %v, want %v", c.role, c.action, c.resource, got, c.want)
		}
	}
}

func TestPermissionsIntrospection(t *testing.T) {
	perms := Permissions(RoleProfessional)
	actions, ok := perms[ResourceTimeclock]
	if !ok || len(actions) != 2 {
		t.Fatalf("expected 2 timeclock actions for professional, got %v", perms)
	}
	if len(Permissions("unknown")) != 0 {
		t.Fatal("unknown role should have no permissions")
	}
}
