package models

import "time"

// AuditAction names the operation an audit event describes.
type AuditAction string

const (
	AuditAuthenticate   AuditAction = "authenticate"
	AuditRegister       AuditAction = "register"
	AuditChangePassword AuditAction = "change_password"
	AuditUpdateProfile  AuditAction = "update_profile"
	AuditDeleteUser     AuditAction = "delete_user"
	AuditAddRole        AuditAction = "add_role"
	AuditUpdateRole     AuditAction = "update_role"
	AuditDeleteRole     AuditAction = "delete_role"
	AuditIssueLicense   AuditAction = "issue_license"
	AuditRenewLicense   AuditAction = "renew_license"
	AuditSuspendLicense AuditAction = "suspend_license"
	AuditDeleteLicense  AuditAction = "delete_license"
	AuditBulkUpdate     AuditAction = "bulk_update"
	AuditExpireLicenses AuditAction = "expire_licenses"
	AuditRotateKey      AuditAction = "rotate_key"
	AuditDiscardKey     AuditAction = "discard_key"
	AuditBackup         AuditAction = "backup"
	AuditRestore        AuditAction = "restore"
	AuditDeleteBackup   AuditAction = "delete_backup"
)

// AuditOutcome is the result recorded in an audit event.
type AuditOutcome string

const (
	AuditSuccess AuditOutcome = "success"
	AuditFailure AuditOutcome = "failure"
)

// AuditEvent is a structured record of a security-relevant operation.
// It never carries passwords or other secret material.
type AuditEvent struct {
	ID        string       `json:"id"`
	Action    AuditAction  `json:"action"`
	Outcome   AuditOutcome `json:"outcome"`
	Username  string       `json:"username,omitempty"`
	UserID    int64        `json:"user_id,omitempty"`
	Actor     string       `json:"actor,omitempty"`
	Subject   string       `json:"subject,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
