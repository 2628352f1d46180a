package models

// Snapshot is the complete persisted state: users, roles and licenses.
// Repositories load and save it as a unit.
type Snapshot struct {
	// NextUserID is the identifier the next registered user receives.
	NextUserID int64
	Users      []User
	Roles      []Role
	Licenses   []License
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{NextUserID: s.NextUserID}
	if s.Users != nil {
		c.Users = make([]User, len(s.Users))
		for i, u := range s.Users {
			c.Users[i] = u.Clone()
		}
	}
	if s.Roles != nil {
		c.Roles = make([]Role, len(s.Roles))
		for i, r := range s.Roles {
			c.Roles[i] = r.Clone()
		}
	}
	if s.Licenses != nil {
		c.Licenses = make([]License, len(s.Licenses))
		for i, l := range s.Licenses {
			c.Licenses[i] = l.Clone()
		}
	}
	return c
}

// IsEmpty reports whether nothing has ever been stored.
func (s Snapshot) IsEmpty() bool {
	return len(s.Users) == 0 && len(s.Roles) == 0 && len(s.Licenses) == 0
}
