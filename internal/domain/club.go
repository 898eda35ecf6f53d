package domain

import (
	"strings"
	"time"
)

// Club is a venue publishing events and posts through its ClubProfile
type Club struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	MainLocation  string    `json:"main_location"`
	ContactNumber string    `json:"contact_number"`
	Description   string    `json:"description,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	CreatedBy     string    `json:"created_by"` // user id of the creator, always in the admin set
	ProfileID     string    `json:"profile_id"` // ClubProfile id
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ClubProfile is the social face of a club and owns its feed
type ClubProfile struct {
	ID          string    `json:"id"`
	ClubID      string    `json:"club_id"`
	FeedID      string    `json:"feed_id"`
	ProfilePic  string    `json:"profile_pic,omitempty"`
	Description string    `json:"description,omitempty"`
	Address     string    `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ClubAdmin is one member of a club's admin set
type ClubAdmin struct {
	ClubID    string    `json:"club_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeClubName trims the name; uniqueness is checked case-insensitively by the store
func NormalizeClubName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Validation("name", "club name is required")
	}
	if len(name) > 255 {
		return "", Validation("name", "club name must not exceed 255 characters")
	}
	return name, nil
}
