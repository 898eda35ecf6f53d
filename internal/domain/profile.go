package domain

import "time"

// Role is the role claim carried by a profile. Club authorization does not read it;
// the club admin set is authoritative.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleClubAdmin  Role = "club_admin"
	RoleClubOwner  Role = "club_owner"
	RoleSuperAdmin Role = "super_admin"
)

var roleDisplayNames = map[Role]string{
	RoleCustomer:   "Customer",
	RoleClubAdmin:  "Club Admin",
	RoleClubOwner:  "Club Owner",
	RoleSuperAdmin: "Super Admin",
}

// IsValid returns true for a known role
func (r Role) IsValid() bool {
	_, ok := roleDisplayNames[r]
	return ok
}

// DisplayName returns the human readable role name
func (r Role) DisplayName() string {
	return roleDisplayNames[r]
}

// Default media references for profiles without uploads
const (
	DefaultProfilePicURL = "/media/images/profile_pictures/default.jpeg"
	DefaultCoverPicURL   = "/media/images/cover_pictures/default.jpeg"
)

// Profile represents a user's social identity
type Profile struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Username      string     `json:"username"`
	Role          Role       `json:"role"`
	FeedID        string     `json:"feed_id"`
	Bio           string     `json:"bio,omitempty"`
	ProfilePicURL string     `json:"profile_pic_url,omitempty"`
	CoverPicURL   string     `json:"cover_pic_url,omitempty"`
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty"`
	IsVIP         bool       `json:"is_vip"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ProfilePic returns the stored picture or the default
func (p *Profile) ProfilePic() string {
	if p.ProfilePicURL == "" {
		return DefaultProfilePicURL
	}
	return p.ProfilePicURL
}

// CoverPic returns the stored cover or the default
func (p *Profile) CoverPic() string {
	if p.CoverPicURL == "" {
		return DefaultCoverPicURL
	}
	return p.CoverPicURL
}

// Age returns the age in whole years at now, or nil without a date of birth
func (p *Profile) Age(now time.Time) *int {
	if p.DateOfBirth == nil {
		return nil
	}
	dob := *p.DateOfBirth
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return &age
}

// VIPSubscription grants VIP status until EndDate (inclusive)
type VIPSubscription struct {
	ProfileID string    `json:"profile_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// IsActive reports whether the subscription covers the day of now
func (v *VIPSubscription) IsActive(now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	ey, em, ed := v.EndDate.In(now.Location()).Date()
	end := time.Date(ey, em, ed, 0, 0, 0, 0, now.Location())
	return !end.Before(today)
}
