package domain

import "time"

// FollowEdge links a follower profile to a user or club target
type FollowEdge struct {
	FollowerID string    `json:"follower_id"`
	Target     Owner     `json:"target"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidateFollow rejects malformed targets and self-follows.
// A user target equal to the follower's own profile id is a self-follow.
func ValidateFollow(followerID string, target Owner) error {
	if followerID == "" {
		return Validation("follower_id", "follower id is required")
	}
	if err := target.Validate(); err != nil {
		return err
	}
	if target.IsUser() && target.ID == followerID {
		return ErrSelfFollow
	}
	return nil
}
