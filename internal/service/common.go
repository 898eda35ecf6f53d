package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/events"
	"github.com/Riddimental/Backend-Noctra/internal/repository"
	"github.com/Riddimental/Backend-Noctra/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPageLimit = 50

// now returns the current time at the precision Postgres stores
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// generateCode returns n random bytes hex encoded in upper case
func generateCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// normalize checks the cursor and fills the default limit
func (p PageRequest) normalize() (PageRequest, error) {
	if p.After != "" && uuid.Validate(p.After) != nil {
		return p, domain.Validation("cursor", "malformed cursor")
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	return p, nil
}

// authorizer answers "may this user act for that owner or club"
type authorizer struct {
	store *repository.Store
}

// requireClubAdmin fails with NotFound for an unknown club and
// ErrNotClubAdmin when userID is outside the admin set
func (a authorizer) requireClubAdmin(ctx context.Context, clubID, userID string) (*domain.Club, error) {
	club, err := a.store.Clubs.GetByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if club == nil {
		return nil, domain.NotFound("club", "club_id", clubID)
	}
	ok, err := a.store.Clubs.IsAdmin(ctx, clubID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotClubAdmin
	}
	return club, nil
}

// requireOwner checks that userID controls owner: the profile's own user for
// a user owner, any member of the club's admin set for a club owner
func (a authorizer) requireOwner(ctx context.Context, owner domain.Owner, userID string) error {
	_, err := domain.MatchOwner(owner,
		func(profileID string) (struct{}, error) {
			p, err := a.store.Profiles.GetByID(ctx, profileID)
			if err != nil {
				return struct{}{}, err
			}
			if p == nil {
				return struct{}{}, domain.NotFound("profile", "owner.id", profileID)
			}
			if p.UserID != userID {
				return struct{}{}, domain.ErrNotOwner
			}
			return struct{}{}, nil
		},
		func(clubProfileID string) (struct{}, error) {
			cp, err := a.store.Clubs.GetProfile(ctx, clubProfileID)
			if err != nil {
				return struct{}{}, err
			}
			if cp == nil {
				return struct{}{}, domain.NotFound("club profile", "owner.id", clubProfileID)
			}
			_, err = a.requireClubAdmin(ctx, cp.ClubID, userID)
			return struct{}{}, err
		},
	)
	return err
}

// ownerExists reports a NotFound error when the owner's profile is missing
func (a authorizer) ownerExists(ctx context.Context, owner domain.Owner, field string) error {
	_, err := domain.MatchOwner(owner,
		func(profileID string) (bool, error) {
			p, err := a.store.Profiles.GetByID(ctx, profileID)
			if err == nil && p == nil {
				err = domain.NotFound("profile", field, profileID)
			}
			return p != nil, err
		},
		func(clubProfileID string) (bool, error) {
			cp, err := a.store.Clubs.GetProfile(ctx, clubProfileID)
			if err == nil && cp == nil {
				err = domain.NotFound("club profile", field, clubProfileID)
			}
			return cp != nil, err
		},
	)
	return err
}

func (a authorizer) profile(ctx context.Context, id, field string) (*domain.Profile, error) {
	p, err := a.store.Profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("profile", field, id)
	}
	return p, nil
}

// publish sends events after the write committed. Delivery failures are
// logged; the write already happened and is not rolled back.
func publish(ctx context.Context, pub events.Publisher, evs ...events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, evs...); err != nil {
		types := make([]string, len(evs))
		for i, ev := range evs {
			types[i] = ev.Type
		}
		logger.WarnCtx(ctx, "failed to publish domain events", zap.Strings("types", types), zap.Error(err))
	}
}
