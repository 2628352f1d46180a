package models

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownPermission is returned when a permission name is not one of the
// known permissions and is not the wildcard.
var ErrUnknownPermission = errors.New("unknown permission")

// Permission is a named capability granted through a role.
type Permission string

// PermissionAll is the wildcard that grants every permission.
const PermissionAll Permission = "*"

// Known permissions.
const (
	PermViewUsers       Permission = "view_users"
	PermEditUsers       Permission = "edit_users"
	PermDeleteUsers     Permission = "delete_users"
	PermViewLicenses    Permission = "view_licenses"
	PermEditLicenses    Permission = "edit_licenses"
	PermDeleteLicenses  Permission = "delete_licenses"
	PermViewTemplates   Permission = "view_templates"
	PermEditTemplates   Permission = "edit_templates"
	PermDeleteTemplates Permission = "delete_templates"
	PermViewReports     Permission = "view_reports"
	PermGenerateReports Permission = "generate_reports"
	PermManageBackups   Permission = "manage_backups"
	PermRestoreBackups  Permission = "restore_backups"
	PermManageRoles     Permission = "manage_roles"
	PermManageKeys      Permission = "manage_keys"
)

var knownPermissions = []Permission{
	PermViewUsers,
	PermEditUsers,
	PermDeleteUsers,
	PermViewLicenses,
	PermEditLicenses,
	PermDeleteLicenses,
	PermViewTemplates,
	PermEditTemplates,
	PermDeleteTemplates,
	PermViewReports,
	PermGenerateReports,
	PermManageBackups,
	PermRestoreBackups,
	PermManageRoles,
	PermManageKeys,
}

// KnownPermissions returns every concrete permission in declaration order.
func KnownPermissions() []Permission {
	return slices.Clone(knownPermissions)
}

// IsKnown reports whether p is a concrete known permission or the wildcard.
func (p Permission) IsKnown() bool {
	return p == PermissionAll || slices.Contains(knownPermissions, p)
}

// ParsePermission converts s into a Permission, rejecting unknown names.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.IsKnown() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
	}
	return p, nil
}

// Built-in role names.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// Role is a named set of permissions.
type Role struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
	Description string       `json:"description,omitempty"`
}

// Clone returns a deep copy of r.
func (r Role) Clone() Role {
	c := r
	c.Permissions = slices.Clone(r.Permissions)
	return c
}

// Grants reports whether the role carries p, directly or via the wildcard.
func (r Role) Grants(p Permission) bool {
	for _, granted := range r.Permissions {
		if granted == PermissionAll || granted == p {
			return true
		}
	}
	return false
}

// Expanded returns the concrete permissions of r with the wildcard expanded
// to all known permissions. The result is sorted and free of duplicates.
func (r Role) Expanded() []Permission {
	if slices.Contains(r.Permissions, PermissionAll) {
		out := KnownPermissions()
		slices.Sort(out)
		return out
	}

	out := make([]Permission, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		if p.IsKnown() {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// DefaultRoles returns the built-in roles seeded on first start.
func DefaultRoles() []Role {
	return []Role{
		{
			Name:        RoleAdmin,
			Permissions: []Permission{PermissionAll},
			Description: "Full access",
		},
		{
			Name: RoleManager,
			Permissions: []Permission{
				PermViewUsers, PermEditUsers,
				PermViewLicenses, PermEditLicenses,
				PermViewTemplates, PermEditTemplates,
			},
			Description: "Manages users, licenses and templates",
		},
		{
			Name:        RoleUser,
			Permissions: []Permission{PermViewUsers, PermViewLicenses, PermViewTemplates},
			Description: "Read-only access",
		},
	}
}
