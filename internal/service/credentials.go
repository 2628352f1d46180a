package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/MKhiriev/go-license-keeper/internal/crypto"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/validators"
	"github.com/MKhiriev/go-license-keeper/models"
)

// Reasons recorded on failed authentication events. The caller only ever
// sees ErrInvalidCredentials.
const (
	reasonUnknownUser   = "unknown user"
	reasonInactiveUser  = "user is inactive"
	reasonWrongPassword = "wrong password"
)

type credentialStore struct {
	state     *state
	hasher    crypto.PasswordHasher
	validator validators.Validator

	logger *logger.Logger
}

func newCredentialStore(st *state, hasher crypto.PasswordHasher, validator validators.Validator, log *logger.Logger) *credentialStore {
	return &credentialStore{
		state:     st,
		hasher:    hasher,
		validator: validator,
		logger:    log,
	}
}

func (c *credentialStore) Register(ctx context.Context, username, password, role string) (int64, error) {
	event := models.AuditEvent{Username: username}

	id, err := c.register(ctx, username, password, role, false)
	if err != nil {
		c.state.auditor.Failure(ctx, models.AuditRegister, event, err)
		return 0, err
	}

	event.UserID = id
	c.state.auditor.Success(ctx, models.AuditRegister, event)
	return id, nil
}

// BootstrapAdmin creates an admin account when the store has no users. It
// reports whether a user was created.
func (c *credentialStore) BootstrapAdmin(ctx context.Context, username, password string) (int64, bool, error) {
	id, err := c.register(ctx, username, password, models.RoleAdmin, true)
	if errors.Is(err, errUnchanged) {
		return 0, false, nil
	}
	if err != nil {
		c.state.auditor.Failure(ctx, models.AuditRegister, models.AuditEvent{Username: username, Subject: "bootstrap"}, err)
		return 0, false, err
	}

	c.state.auditor.Success(ctx, models.AuditRegister, models.AuditEvent{Username: username, UserID: id, Subject: "bootstrap"})
	c.logger.Info().Str("func", "credentialStore.BootstrapAdmin").Str("username", username).Msg("created bootstrap admin")
	return id, true, nil
}

// register creates a user. With onlyIfEmpty set it returns errUnchanged
// when any user exists.
func (c *credentialStore) register(ctx context.Context, username, password, role string, onlyIfEmpty bool) (int64, error) {
	if err := c.validator.Validate(ctx, models.User{Username: username, Role: role}, validators.FieldUsername, validators.FieldRole); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := validators.ValidatePassword(password); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var precheck error
	c.state.read(func(snap *models.Snapshot) {
		switch {
		case onlyIfEmpty && len(snap.Users) > 0:
			precheck = errUnchanged
		case findUsername(snap.Users, username) >= 0:
			precheck = ErrDuplicateUsername
		case findRole(snap.Roles, role) < 0:
			precheck = fmt.Errorf("%w: %q", ErrRoleNotFound, role)
		}
	})
	if precheck != nil {
		return 0, precheck
	}

	// hashing is slow, keep it outside the lock
	hash, salt, params, err := c.hasher.Hash(password)
	if err != nil {
		c.logger.Err(err).Str("func", "credentialStore.register").Msg("error hashing password")
		return 0, fmt.Errorf("hash password: %w", err)
	}

	var id int64
	created := false
	err = c.state.update(ctx, func(snap *models.Snapshot) error {
		if onlyIfEmpty && len(snap.Users) > 0 {
			return errUnchanged
		}
		if findUsername(snap.Users, username) >= 0 {
			return ErrDuplicateUsername
		}
		if findRole(snap.Roles, role) < 0 {
			return fmt.Errorf("%w: %q", ErrRoleNotFound, role)
		}

		now := c.state.clock.Now().UTC()
		id = snap.NextUserID
		snap.NextUserID++
		snap.Users = append(snap.Users, models.User{
			ID:           id,
			Username:     username,
			PasswordHash: hash,
			Salt:         salt,
			HashParams:   params,
			Role:         role,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		created = true
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !created {
		return 0, errUnchanged
	}
	return id, nil
}

func (c *credentialStore) Authenticate(ctx context.Context, username, password string) (int64, error) {
	event := models.AuditEvent{Username: username}

	var (
		user  models.User
		found bool
	)
	c.state.read(func(snap *models.Snapshot) {
		if i := findUsername(snap.Users, username); i >= 0 {
			user = snap.Users[i].Clone()
			found = true
		}
	})

	if !found {
		c.hasher.Burn(password)
		event.Reason = reasonUnknownUser
		c.state.auditor.Failure(ctx, models.AuditAuthenticate, event, ErrInvalidCredentials)
		return 0, ErrInvalidCredentials
	}

	event.UserID = user.ID
	ok, err := c.hasher.Verify(password, user.PasswordHash, user.Salt, user.HashParams)
	if err != nil {
		c.logger.Err(err).Str("func", "credentialStore.Authenticate").Int64("user_id", user.ID).Msg("error verifying password")
		event.Reason = err.Error()
		c.state.auditor.Failure(ctx, models.AuditAuthenticate, event, ErrInvalidCredentials)
		return 0, ErrInvalidCredentials
	}

	switch {
	case !ok:
		event.Reason = reasonWrongPassword
	case !user.IsActive:
		event.Reason = reasonInactiveUser
	default:
		c.state.auditor.Success(ctx, models.AuditAuthenticate, event)
		return user.ID, nil
	}

	c.state.auditor.Failure(ctx, models.AuditAuthenticate, event, ErrInvalidCredentials)
	return 0, ErrInvalidCredentials
}

func (c *credentialStore) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	event := models.AuditEvent{UserID: userID}

	err := c.changePassword(ctx, userID, current, next)
	if err != nil {
		c.state.auditor.Failure(ctx, models.AuditChangePassword, event, err)
		return err
	}

	c.state.auditor.Success(ctx, models.AuditChangePassword, event)
	return nil
}

func (c *credentialStore) changePassword(ctx context.Context, userID int64, current, next string) error {
	if err := validators.ValidatePassword(next); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var (
		user  models.User
		found bool
	)
	c.state.read(func(snap *models.Snapshot) {
		if i := findUser(snap.Users, userID); i >= 0 {
			user = snap.Users[i].Clone()
			found = true
		}
	})
	if !found {
		c.hasher.Burn(current)
		return ErrUserNotFound
	}

	ok, err := c.hasher.Verify(current, user.PasswordHash, user.Salt, user.HashParams)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	hash, salt, params, err := c.hasher.Hash(next)
	if err != nil {
		c.logger.Err(err).Str("func", "credentialStore.changePassword").Msg("error hashing password")
		return fmt.Errorf("hash password: %w", err)
	}

	return c.state.update(ctx, func(snap *models.Snapshot) error {
		i := findUser(snap.Users, userID)
		if i < 0 {
			return ErrUserNotFound
		}
		// the password changed concurrently since it was verified
		if !slices.Equal(snap.Users[i].Salt, user.Salt) {
			return ErrInvalidCredentials
		}

		u := &snap.Users[i]
		u.PasswordHash = hash
		u.Salt = salt
		u.HashParams = params
		u.UpdatedAt = c.state.clock.Now().UTC()
		return nil
	})
}

func (c *credentialStore) UpdateProfile(ctx context.Context, userID int64, patch models.ProfilePatch) error {
	event := models.AuditEvent{UserID: userID}

	err := c.updateProfile(ctx, userID, patch)
	if err != nil {
		c.state.auditor.Failure(ctx, models.AuditUpdateProfile, event, err)
		return err
	}

	c.state.auditor.Success(ctx, models.AuditUpdateProfile, event)
	return nil
}

// ApplyPatchMap updates a profile from a loosely typed field map. Protected
// fields and fields of the wrong type are skipped and returned.
func (c *credentialStore) ApplyPatchMap(ctx context.Context, userID int64, fields map[string]any) ([]string, error) {
	patch, ignored := models.ProfilePatchFromMap(fields)
	slices.Sort(ignored)

	if len(ignored) > 0 {
		c.logger.Warn().Str("func", "credentialStore.ApplyPatchMap").Int64("user_id", userID).
			Strs("ignored", ignored).Msg("ignored protected or malformed profile fields")
	}

	if err := c.UpdateProfile(ctx, userID, patch); err != nil {
		return ignored, err
	}
	return ignored, nil
}

func (c *credentialStore) updateProfile(ctx context.Context, userID int64, patch models.ProfilePatch) error {
	if patch.Role != nil {
		if err := c.validator.Validate(ctx, models.User{Role: *patch.Role}, validators.FieldRole); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	if len(patch.Attributes) > 0 {
		if err := c.validator.Validate(ctx, models.User{Attributes: patch.Attributes}, validators.FieldEmail, validators.FieldPhone); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	return c.state.update(ctx, func(snap *models.Snapshot) error {
		i := findUser(snap.Users, userID)
		if i < 0 {
			return ErrUserNotFound
		}
		if patch.IsEmpty() {
			return errUnchanged
		}

		u := &snap.Users[i]
		if patch.Role != nil {
			if findRole(snap.Roles, *patch.Role) < 0 {
				return fmt.Errorf("%w: %q", ErrRoleNotFound, *patch.Role)
			}
			u.Role = *patch.Role
		}
		if patch.IsActive != nil {
			u.IsActive = *patch.IsActive
		}
		u.Attributes = mergeFields(u.Attributes, patch.Attributes)
		u.Secrets = mergeFields(u.Secrets, patch.Secrets)
		u.UpdatedAt = c.state.clock.Now().UTC()
		return nil
	})
}

// mergeFields applies patch to dst; an empty value deletes the key.
func mergeFields(dst, patch map[string]string) map[string]string {
	if len(patch) == 0 {
		return dst
	}
	out := maps.Clone(dst)
	if out == nil {
		out = make(map[string]string, len(patch))
	}
	for k, v := range patch {
		if v == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c *credentialStore) DeleteUser(ctx context.Context, userID int64) error {
	event := models.AuditEvent{UserID: userID}

	err := c.state.update(ctx, func(snap *models.Snapshot) error {
		i := findUser(snap.Users, userID)
		if i < 0 {
			return ErrUserNotFound
		}
		if len(snap.Users) == 1 {
			return ErrLastUserProtected
		}
		event.Username = snap.Users[i].Username
		snap.Users = slices.Delete(snap.Users, i, i+1)
		return nil
	})
	if err != nil {
		c.state.auditor.Failure(ctx, models.AuditDeleteUser, event, err)
		return err
	}

	c.state.auditor.Success(ctx, models.AuditDeleteUser, event)
	return nil
}

func (c *credentialStore) HasUsers(_ context.Context) bool {
	has := false
	c.state.read(func(snap *models.Snapshot) {
		has = len(snap.Users) > 0
	})
	return has
}

func (c *credentialStore) GetUser(_ context.Context, userID int64) (models.User, error) {
	var (
		user  models.User
		found bool
	)
	c.state.read(func(snap *models.Snapshot) {
		if i := findUser(snap.Users, userID); i >= 0 {
			user = snap.Users[i].Public()
			found = true
		}
	})
	if !found {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (c *credentialStore) ListUsers(_ context.Context, filter models.UserFilter) []models.User {
	var users []models.User
	c.state.read(func(snap *models.Snapshot) {
		for _, u := range snap.Users {
			if filter.Match(u) {
				users = append(users, u.Public())
			}
		}
	})
	slices.SortFunc(users, func(a, b models.User) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return users
}
