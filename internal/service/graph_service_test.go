package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p := h.profile("user-1")
	assert.Equal(t, domain.RoleCustomer, p.Role)
	assert.Equal(t, domain.DefaultProfilePicURL, p.ProfilePic())

	feed, err := h.store.Feeds.GetByOwner(ctx, domain.UserOwner(p.ID))
	require.NoError(t, err)
	require.NotNil(t, feed)
	assert.Equal(t, p.FeedID, feed.ID)

	_, err = h.graph.CreateProfile(ctx, CreateProfileInput{UserID: "user-1", Username: "again"})
	assert.ErrorIs(t, err, domain.ErrProfileExists)
}

func TestCreateProfile_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    CreateProfileInput
		field string
	}{
		{"missing user", CreateProfileInput{Username: "x"}, "user_id"},
		{"blank username", CreateProfileInput{UserID: "u", Username: "  "}, "username"},
		{"long username", CreateProfileInput{UserID: "u", Username: strings.Repeat("a", 151)}, "username"},
		{"unknown role", CreateProfileInput{UserID: "u", Username: "x", Role: "dj"}, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.graph.CreateProfile(context.Background(), tt.in)
			require.Error(t, err)
			var de *domain.Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, domain.KindValidation, de.Kind)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.profile("user-1")

	bio := "  techno only  "
	dob := time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC)
	updated, err := h.graph.UpdateProfile(ctx, "user-1", UpdateProfileInput{Bio: &bio, DateOfBirth: &dob})
	require.NoError(t, err)
	assert.Equal(t, "techno only", updated.Bio)
	assert.Equal(t, p.Username, updated.Username)

	stored, err := h.graph.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "techno only", stored.Bio)
	require.NotNil(t, stored.Age(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	future := time.Now().Add(48 * time.Hour)
	_, err = h.graph.UpdateProfile(ctx, "user-1", UpdateProfileInput{DateOfBirth: &future})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = h.graph.UpdateProfile(ctx, "nobody", UpdateProfileInput{Bio: &bio})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestSubscribeVIP(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.profile("user-1")

	_, err := h.graph.SubscribeVIP(ctx, "user-1", time.Now().Add(-48*time.Hour))
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	sub, err := h.graph.SubscribeVIP(ctx, "user-1", time.Now().Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.True(t, sub.IsActive(time.Now()))

	stored, err := h.graph.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVIP)
}

func TestCreateClub(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	club := h.club("owner", "  Neon Room ")
	assert.Equal(t, "Neon Room", club.Name)
	assert.NotEmpty(t, club.ProfileID)

	admins, err := h.graph.ListClubAdmins(ctx, "owner", club.ID)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "owner", admins[0].UserID)

	feed, err := h.store.Feeds.GetByOwner(ctx, domain.ClubOwner(club.ProfileID))
	require.NoError(t, err)
	assert.NotNil(t, feed)

	_, err = h.graph.CreateClub(ctx, "someone", CreateClubInput{Name: "NEON ROOM"})
	assert.ErrorIs(t, err, domain.ErrClubNameTaken)

	_, err = h.graph.CreateClub(ctx, "someone", CreateClubInput{Name: " "})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestClubAdminSet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	club := h.club("owner", "Neon")

	_, err := h.graph.AddClubAdmin(ctx, "outsider", club.ID, "outsider")
	assert.ErrorIs(t, err, domain.ErrNotClubAdmin)

	_, err = h.graph.AddClubAdmin(ctx, "owner", club.ID, "manager")
	require.NoError(t, err)
	_, err = h.graph.AddClubAdmin(ctx, "owner", club.ID, "manager")
	assert.ErrorIs(t, err, domain.ErrAdminExists)

	// a new admin can manage the set but cannot drop the creator
	_, err = h.graph.AddClubAdmin(ctx, "manager", club.ID, "doorman")
	require.NoError(t, err)
	err = h.graph.RemoveClubAdmin(ctx, "manager", club.ID, "owner")
	assert.ErrorIs(t, err, domain.ErrCreatorRemoval)

	require.NoError(t, h.graph.RemoveClubAdmin(ctx, "owner", club.ID, "doorman"))
	err = h.graph.RemoveClubAdmin(ctx, "owner", club.ID, "doorman")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	admins, err := h.graph.ListClubAdmins(ctx, "manager", club.ID)
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	_, err = h.graph.ListClubAdmins(ctx, "owner", "missing-club")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestFollow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.profile("a")
	b := h.profile("b")
	club := h.club("owner", "Neon")

	_, err := h.graph.Follow(ctx, a.ID, domain.UserOwner(a.ID))
	assert.ErrorIs(t, err, domain.ErrSelfFollow)

	_, err = h.graph.Follow(ctx, a.ID, domain.UserOwner("ghost"))
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = h.graph.Follow(ctx, "ghost", domain.UserOwner(b.ID))
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = h.graph.Follow(ctx, a.ID, domain.Owner{Kind: "venue", ID: "x"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	edge, err := h.graph.Follow(ctx, a.ID, domain.UserOwner(b.ID))
	require.NoError(t, err)
	assert.Equal(t, a.ID, edge.FollowerID)
	_, err = h.graph.Follow(ctx, a.ID, domain.ClubOwner(club.ProfileID))
	require.NoError(t, err)

	_, err = h.graph.Follow(ctx, a.ID, domain.UserOwner(b.ID))
	assert.ErrorIs(t, err, domain.ErrDuplicateEdge)

	assert.Len(t, h.events.OfType(events.TypeFollowCreated), 2)
}

func TestUnfollowThenFollowAgain(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.profile("a")
	club := h.club("owner", "Neon")
	target := domain.ClubOwner(club.ProfileID)

	_, err := h.graph.Follow(ctx, a.ID, target)
	require.NoError(t, err)
	require.NoError(t, h.graph.Unfollow(ctx, a.ID, target))

	err = h.graph.Unfollow(ctx, a.ID, target)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = h.graph.Follow(ctx, a.ID, target)
	assert.NoError(t, err)
}

func TestListFollowers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	star := h.profile("star")

	var want []string
	for i := 0; i < 5; i++ {
		p := h.profile(fmt.Sprintf("fan-%d", i))
		_, err := h.graph.Follow(ctx, p.ID, domain.UserOwner(star.ID))
		require.NoError(t, err)
		want = append(want, p.ID)
	}
	slices.Sort(want)

	var got []string
	for id, err := range h.graph.ListFollowers(ctx, domain.UserOwner(star.ID), "") {
		require.NoError(t, err)
		got = append(got, id)
	}
	assert.Equal(t, want, got)

	// restart after the second follower
	got = got[:0]
	for id, err := range h.graph.ListFollowers(ctx, domain.UserOwner(star.ID), want[1]) {
		require.NoError(t, err)
		got = append(got, id)
	}
	assert.Equal(t, want[2:], got)

	// consumer stops early
	n := 0
	for range h.graph.ListFollowers(ctx, domain.UserOwner(star.ID), "") {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)

	for _, err := range h.graph.ListFollowers(ctx, domain.Owner{}, "") {
		assert.True(t, domain.IsKind(err, domain.KindValidation))
	}
}

func TestListFollowing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	fan := h.profile("fan")

	var targets []domain.Owner
	for i := 0; i < 3; i++ {
		c := h.club(fmt.Sprintf("owner-%d", i), fmt.Sprintf("Club %d", i))
		targets = append(targets, domain.ClubOwner(c.ProfileID))
		p := h.profile(fmt.Sprintf("friend-%d", i))
		targets = append(targets, domain.UserOwner(p.ID))
	}
	for _, target := range targets {
		_, err := h.graph.Follow(ctx, fan.ID, target)
		require.NoError(t, err)
	}

	var got []domain.Owner
	for o, err := range h.graph.ListFollowing(ctx, fan.ID, domain.Owner{}) {
		require.NoError(t, err)
		got = append(got, o)
	}
	require.Len(t, got, len(targets))
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		assert.True(t, prev.Kind < cur.Kind || (prev.Kind == cur.Kind && prev.ID < cur.ID), "following must be ordered by kind then id")
	}
	assert.ElementsMatch(t, targets, got)
}
