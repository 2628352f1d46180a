package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/validators"
	"github.com/MKhiriev/go-license-keeper/models"
)

type permissionResolver struct {
	state     *state
	validator validators.Validator

	logger *logger.Logger
}

func newPermissionResolver(st *state, validator validators.Validator, log *logger.Logger) *permissionResolver {
	return &permissionResolver{state: st, validator: validator, logger: log}
}

// HasPermission is false for unknown and inactive users and for users whose
// role no longer exists.
func (p *permissionResolver) HasPermission(_ context.Context, userID int64, permission models.Permission) bool {
	granted := false
	p.state.read(func(snap *models.Snapshot) {
		role, ok := activeRole(snap, userID)
		granted = ok && role.Grants(permission)
	})
	return granted
}

func (p *permissionResolver) GetPermissions(_ context.Context, userID int64) []models.Permission {
	perms := []models.Permission{}
	p.state.read(func(snap *models.Snapshot) {
		if role, ok := activeRole(snap, userID); ok {
			perms = role.Expanded()
		}
	})
	return perms
}

func activeRole(snap *models.Snapshot, userID int64) (models.Role, bool) {
	i := findUser(snap.Users, userID)
	if i < 0 || !snap.Users[i].IsActive {
		return models.Role{}, false
	}
	j := findRole(snap.Roles, snap.Users[i].Role)
	if j < 0 {
		return models.Role{}, false
	}
	return snap.Roles[j], true
}

func (p *permissionResolver) AddRole(ctx context.Context, name string, permissions []models.Permission) error {
	event := models.AuditEvent{Subject: name}

	role, err := p.normalize(ctx, name, permissions)
	if err == nil {
		err = p.state.update(ctx, func(snap *models.Snapshot) error {
			if findRole(snap.Roles, name) >= 0 {
				return fmt.Errorf("%w: %q", ErrRoleExists, name)
			}
			snap.Roles = append(snap.Roles, role)
			return nil
		})
	}
	if err != nil {
		p.state.auditor.Failure(ctx, models.AuditAddRole, event, err)
		return err
	}

	p.state.auditor.Success(ctx, models.AuditAddRole, event)
	return nil
}

func (p *permissionResolver) UpdateRole(ctx context.Context, name string, permissions []models.Permission) error {
	event := models.AuditEvent{Subject: name}

	role, err := p.normalize(ctx, name, permissions)
	if err == nil && isBuiltinRole(name) && len(role.Permissions) == 0 {
		err = fmt.Errorf("%w: built-in role %q needs at least one permission", ErrInvalidInput, name)
	}
	if err == nil {
		err = p.state.update(ctx, func(snap *models.Snapshot) error {
			i := findRole(snap.Roles, name)
			if i < 0 {
				return fmt.Errorf("%w: %q", ErrRoleNotFound, name)
			}
			if slices.Equal(snap.Roles[i].Permissions, role.Permissions) {
				return errUnchanged
			}
			snap.Roles[i].Permissions = role.Permissions
			return nil
		})
	}
	if err != nil {
		p.state.auditor.Failure(ctx, models.AuditUpdateRole, event, err)
		return err
	}

	p.state.auditor.Success(ctx, models.AuditUpdateRole, event)
	return nil
}

func (p *permissionResolver) DeleteRole(ctx context.Context, name string) error {
	event := models.AuditEvent{Subject: name}

	err := p.state.update(ctx, func(snap *models.Snapshot) error {
		i := findRole(snap.Roles, name)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrRoleNotFound, name)
		}
		if isBuiltinRole(name) {
			return fmt.Errorf("%w: %q", ErrBuiltinRole, name)
		}
		holders := 0
		for _, u := range snap.Users {
			if u.Role == name {
				holders++
			}
		}
		if holders > 0 {
			return fmt.Errorf("%w: %q is assigned to %d user(s)", ErrRoleInUse, name, holders)
		}
		snap.Roles = slices.Delete(snap.Roles, i, i+1)
		return nil
	})
	if err != nil {
		p.state.auditor.Failure(ctx, models.AuditDeleteRole, event, err)
		return err
	}

	p.state.auditor.Success(ctx, models.AuditDeleteRole, event)
	return nil
}

func (p *permissionResolver) ListRoles(_ context.Context) []models.Role {
	var roles []models.Role
	p.state.read(func(snap *models.Snapshot) {
		roles = make([]models.Role, 0, len(snap.Roles))
		for _, r := range snap.Roles {
			roles = append(roles, r.Clone())
		}
	})
	slices.SortFunc(roles, func(a, b models.Role) int {
		return strings.Compare(a.Name, b.Name)
	})
	return roles
}

func (p *permissionResolver) KnownPermissions() []models.Permission {
	return models.KnownPermissions()
}

// normalize validates a role and drops duplicate permissions, keeping the
// first occurrence.
func (p *permissionResolver) normalize(ctx context.Context, name string, permissions []models.Permission) (models.Role, error) {
	role := models.Role{Name: name, Permissions: dedupe(permissions)}
	if err := p.validator.Validate(ctx, role); err != nil {
		return models.Role{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return role, nil
}

func isBuiltinRole(name string) bool {
	return slices.ContainsFunc(models.DefaultRoles(), func(r models.Role) bool { return r.Name == name })
}

// dedupe returns a non-nil copy of items without repeated values, in first
// occurrence order.
func dedupe[T comparable](items []T) []T {
	out := make([]T, 0, len(items))
	seen := make(map[T]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
