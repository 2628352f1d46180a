package models

// ExpiringLicense is an entry of Statistics.SoonToExpire.
type ExpiringLicense struct {
	Key           string `json:"license_key"`
	UserID        int64  `json:"user_id"`
	EndDate       Date   `json:"end_date"`
	DaysRemaining int    `json:"days_remaining"`
}

// Statistics summarises all licenses using their effective status.
type Statistics struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Expired   int `json:"expired"`
	Suspended int `json:"suspended"`

	ByType map[LicenseType]int `json:"by_type"`

	// SoonToExpire lists active licenses ending within the warning window,
	// ascending by days remaining.
	SoonToExpire []ExpiringLicense `json:"soon_to_expire"`
}
