package auth

import "sort"

// Permission is an atomic capability granted through role membership.
type Permission string

const (
	PermViewPatients       Permission = "VIEW_PATIENTS"
	PermEditPatients       Permission = "EDIT_PATIENTS"
	PermDeletePatients     Permission = "DELETE_PATIENTS"
	PermViewAppointments   Permission = "VIEW_APPOINTMENTS"
	PermManageAppointments Permission = "MANAGE_APPOINTMENTS"
	PermViewInventory      Permission = "VIEW_INVENTORY"
	PermManageInventory    Permission = "MANAGE_INVENTORY"
	PermViewReferrals      Permission = "VIEW_REFERRALS"
	PermManageReferrals    Permission = "MANAGE_REFERRALS"
	PermViewReports        Permission = "VIEW_REPORTS"
	PermManageUsers        Permission = "MANAGE_USERS"
	PermManageSettings     Permission = "MANAGE_SETTINGS"
)

// AllPermissions lists every known permission in declaration order.
var AllPermissions = []Permission{
	PermViewPatients,
	PermEditPatients,
	PermDeletePatients,
	PermViewAppointments,
	PermManageAppointments,
	PermViewInventory,
	PermManageInventory,
	PermViewReferrals,
	PermManageReferrals,
	PermViewReports,
	PermManageUsers,
	PermManageSettings,
}

// Valid reports whether p is one of the declared permissions.
func (p Permission) Valid() bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// Role is a named bundle of permissions.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleNurse        Role = "nurse"
	RoleReceptionist Role = "receptionist"
	RolePharmacist   Role = "pharmacist"
)

// AllRoles lists every known role.
var AllRoles = []Role{RoleAdmin, RoleDoctor, RoleNurse, RoleReceptionist, RolePharmacist}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// rolePermissions is the static role → permission table. It is never
// mutated after package initialization.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: AllPermissions,
	RoleDoctor: {
		PermViewPatients, PermEditPatients,
		PermViewAppointments, PermManageAppointments,
		PermViewInventory,
		PermViewReferrals, PermManageReferrals,
		PermViewReports,
	},
	RoleNurse: {
		PermViewPatients,
		PermViewAppointments,
		PermViewInventory,
	},
	RoleReceptionist: {
		PermViewPatients, PermEditPatients,
		PermViewAppointments, PermManageAppointments,
		PermViewReferrals,
	},
	RolePharmacist: {
		PermViewPatients,
		PermViewInventory, PermManageInventory,
		PermViewReports,
	},
}

// PermissionSet is an unordered set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether p is in the set. A nil set has no members.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the members sorted by name.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PermissionsForRole returns a fresh copy of the permissions granted to
// role. Unknown roles get an empty set.
func PermissionsForRole(role Role) PermissionSet {
	return NewPermissionSet(rolePermissions[role]...)
}

// RoleTable returns a copy of the role → permission table for display.
func RoleTable() map[Role][]Permission {
	out := make(map[Role][]Permission, len(rolePermissions))
	for role, perms := range rolePermissions {
		out[role] = append([]Permission(nil), perms...)
	}
	return out
}
