package domain

import "fmt"

// OwnerKind tags which branch of Owner is populated
type OwnerKind string

const (
	OwnerUser OwnerKind = "user"
	OwnerClub OwnerKind = "club"
)

// Owner is the tagged union {UserOwner, ClubOwner}.
// ID is a profile id for OwnerUser and a club profile id for OwnerClub.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

// UserOwner returns an owner pointing at a user profile
func UserOwner(profileID string) Owner {
	return Owner{Kind: OwnerUser, ID: profileID}
}

// ClubOwner returns an owner pointing at a club profile
func ClubOwner(clubProfileID string) Owner {
	return Owner{Kind: OwnerClub, ID: clubProfileID}
}

// Validate checks that exactly one branch is set
func (o Owner) Validate() error {
	switch o.Kind {
	case OwnerUser, OwnerClub:
		if o.ID == "" {
			return Validation("owner.id", "owner id is required")
		}
		return nil
	default:
		return Validation("owner.kind", "owner kind must be %q or %q", OwnerUser, OwnerClub)
	}
}

func (o Owner) IsUser() bool { return o.Kind == OwnerUser }
func (o Owner) IsClub() bool { return o.Kind == OwnerClub }

func (o Owner) String() string {
	return fmt.Sprintf("%s:%s", o.Kind, o.ID)
}

// ParseOwnerKind validates a wire value
func ParseOwnerKind(s string) (OwnerKind, error) {
	switch OwnerKind(s) {
	case OwnerUser:
		return OwnerUser, nil
	case OwnerClub:
		return OwnerClub, nil
	}
	return "", Validation("owner.kind", "owner kind must be %q or %q", OwnerUser, OwnerClub)
}

// MatchOwner dispatches on the owner branch. Unknown kinds yield a validation error.
func MatchOwner[T any](o Owner, onUser func(profileID string) (T, error), onClub func(clubProfileID string) (T, error)) (T, error) {
	switch o.Kind {
	case OwnerUser:
		return onUser(o.ID)
	case OwnerClub:
		return onClub(o.ID)
	}
	var zero T
	return zero, o.Validate()
}
