package auth

// Role names carried in JWT claims.
const (
	RoleAdmin        = "admin"
	RoleManager      = "manager"
	RoleProfessional = "professional"
	RoleReceptionist = "receptionist"
)

// Resources guarded by the permission matrix.
const (
	ResourceAppointments  = "appointments"
	ResourceSlots         = "slots"
	ResourceCatalog       = "catalog"
	ResourceProfessionals = "professionals"
	ResourceSchedules     = "schedules"
	ResourceClients       = "clients"
	ResourceInventory     = "inventory"
	ResourceReports       = "reports"
	ResourceTimeclock     = "timeclock"
	ResourceUsers         = "users"
	ResourceAudit         = "audit"
)

// Actions checked against the matrix.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

type permission struct {
	resource string
	action   string
}

// rolePermissions is the static role-permission matrix. Admin is handled as
// an unconditional allow in Allowed.
var rolePermissions = map[string]map[permission]bool{
	RoleManager: permitAll(
		ResourceAppointments, ResourceSlots, ResourceCatalog, ResourceProfessionals,
		ResourceSchedules, ResourceClients, ResourceInventory, ResourceReports,
		ResourceTimeclock,
	),
	RoleReceptionist: merge(
		permit(ResourceAppointments, ActionRead, ActionWrite),
		permit(ResourceSlots, ActionRead),
		permit(ResourceCatalog, ActionRead),
		permit(ResourceProfessionals, ActionRead),
		permit(ResourceSchedules, ActionRead),
		permit(ResourceClients, ActionRead, ActionWrite),
		permit(ResourceTimeclock, ActionWrite),
	),
	RoleProfessional: merge(
		permit(ResourceAppointments, ActionRead),
		permit(ResourceSlots, ActionRead),
		permit(ResourceSchedules, ActionRead),
		permit(ResourceClients, ActionRead),
		permit(ResourceTimeclock, ActionRead, ActionWrite),
	),
}

// Allowed reports whether role may perform action on resource.
func Allowed(role, action, resource string) bool {
	if role == RoleAdmin {
		return true
	}
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return perms[permission{resource: resource, action: action}]
}

// Permissions returns the explicit grant list for a role, for introspection
// endpoints. Admin returns nil, meaning "everything".
func Permissions(role string) map[string][]string {
	perms, ok := rolePermissions[role]
	if !ok {
		return map[string][]string{}
	}
	out := map[string][]string{}
	for p, allowed := range perms {
		if allowed {
			out[p.resource] = append(out[p.resource], p.action)
		}
	}
	return out
}

func permit(resource string, actions ...string) map[permission]bool {
	m := map[permission]bool{}
	for _, a := range actions {
		m[permission{resource: resource, action: a}] = true
	}
	return m
}

func permitAll(resources ...string) map[permission]bool {
	m := map[permission]bool{}
	for _, r := range resources {
		for _, a := range []string{ActionRead, ActionWrite, ActionDelete} {
			m[permission{resource: r, action: a}] = true
		}
	}
	return m
}

func merge(maps ...map[permission]bool) map[permission]bool {
	out := map[permission]bool{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
