// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-license-keeper/models"
)

// DomainValidator validates users, roles, licenses and issue requests.
type DomainValidator struct {
}

func NewDomainValidator() Validator {
	return &DomainValidator{}
}

func (v *DomainValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.User:
		return v.validateUser(ctx, value, fields...)
	case *models.User:
		return v.validateUser(ctx, *value, fields...)

	case models.Role:
		return v.validateRole(ctx, value, fields...)
	case *models.Role:
		return v.validateRole(ctx, *value, fields...)

	case models.License:
		return v.validateLicense(ctx, value, fields...)
	case *models.License:
		return v.validateLicense(ctx, *value, fields...)

	case models.IssueRequest:
		return v.validateIssueRequest(ctx, value, fields...)
	case *models.IssueRequest:
		return v.validateIssueRequest(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *DomainValidator) validateUser(_ context.Context, user models.User, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldUsername, FieldRole, FieldEmail, FieldPhone}
	}

	for _, f := range fields {
		switch f {
		case FieldUsername:
			if !usernamePattern.MatchString(user.Username) {
				return fmt.Errorf("%w: %q", ErrInvalidUsername, user.Username)
			}
		case FieldUserID:
			if user.ID <= 0 {
				return ErrInvalidUserID
			}
		case FieldRole:
			if user.Role == "" {
				return ErrEmptyRole
			}
		case FieldEmail:
			if email := user.Attributes[FieldEmail]; email != "" && !emailPattern.MatchString(email) {
				return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
			}
		case FieldPhone:
			if phone := user.Attributes[FieldPhone]; phone != "" && !phonePattern.MatchString(phone) {
				return fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *DomainValidator) validateRole(_ context.Context, role models.Role, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldName, FieldPermissions}
	}

	for _, f := range fields {
		switch f {
		case FieldName:
			if !roleNamePattern.MatchString(role.Name) {
				return fmt.Errorf("%w: %q", ErrInvalidRoleName, role.Name)
			}
		case FieldPermissions:
			for _, p := range role.Permissions {
				if !p.IsKnown() {
					return fmt.Errorf("%w: %q", ErrInvalidPermission, p)
				}
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *DomainValidator) validateLicense(_ context.Context, license models.License, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldKey, FieldUserID, FieldStatus, FieldDates, FieldMaxUsers}
	}

	for _, f := range fields {
		switch f {
		case FieldKey:
			if !IsLicenseKey(license.Key) {
				return fmt.Errorf("%w: %q", ErrInvalidLicenseKey, license.Key)
			}
		case FieldUserID:
			if license.UserID <= 0 {
				return ErrInvalidUserID
			}
		case FieldStatus:
			if !license.Status.IsValid() {
				return fmt.Errorf("%w: %q", ErrInvalidStatus, license.Status)
			}
		case FieldDates:
			if license.StartDate.IsZero() || license.EndDate.IsZero() || !license.EndDate.After(license.StartDate) {
				return ErrInvalidDates
			}
		case FieldMaxUsers:
			if license.MaxUsers < 0 {
				return ErrInvalidMaxUsers
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *DomainValidator) validateIssueRequest(_ context.Context, req models.IssueRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldDuration, FieldUserID, FieldKey, FieldMaxUsers}
	}

	for _, f := range fields {
		switch f {
		case FieldDuration:
			if req.DurationDays <= 0 {
				return ErrInvalidDuration
			}
		case FieldUserID:
			if req.UserID <= 0 {
				return ErrInvalidUserID
			}
		case FieldKey:
			if req.Key != "" && !IsLicenseKey(req.Key) {
				return fmt.Errorf("%w: %q", ErrInvalidLicenseKey, req.Key)
			}
		case FieldMaxUsers:
			if req.MaxUsers < 0 {
				return ErrInvalidMaxUsers
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}
