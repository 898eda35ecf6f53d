package service

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/events"
	"github.com/Riddimental/Backend-Noctra/internal/repository"
	"github.com/Riddimental/Backend-Noctra/pkg/logger"
	"github.com/Riddimental/Backend-Noctra/pkg/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultEdgePageSize = 100

// graphService implements the GraphService interface
type graphService struct {
	store     *repository.Store
	auth      authorizer
	publisher events.Publisher
	metrics   *telemetry.Metrics
	pageSize  int
}

// NewGraphService creates a new GraphService. pageSize bounds each follower
// or following query behind the lazy iterators.
func NewGraphService(store *repository.Store, publisher events.Publisher, metrics *telemetry.Metrics, pageSize int) GraphService {
	if pageSize <= 0 {
		pageSize = defaultEdgePageSize
	}
	return &graphService{
		store:     store,
		auth:      authorizer{store: store},
		publisher: publisher,
		metrics:   metrics,
		pageSize:  pageSize,
	}
}

func validateUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.Validation("username", "username is required")
	}
	if len(name) > 150 {
		return "", domain.Validation("username", "username must not exceed 150 characters")
	}
	return name, nil
}

// CreateProfile stores the profile and its feed in one unit
func (s *graphService) CreateProfile(ctx context.Context, in CreateProfileInput) (p *domain.Profile, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.graph.create_profile")
	defer func() { telemetry.EndSpan(span, err) }()

	if strings.TrimSpace(in.UserID) == "" {
		return nil, domain.Validation("user_id", "user id is required")
	}
	username, err := validateUsername(in.Username)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	if !role.IsValid() {
		return nil, domain.Validation("role", "unknown role %q", role)
	}

	ts := now()
	profileID := uuid.New().String()
	feed := &domain.Feed{
		ID:        uuid.New().String(),
		Owner:     domain.UserOwner(profileID),
		CreatedAt: ts,
	}
	p = &domain.Profile{
		ID:          profileID,
		UserID:      in.UserID,
		Username:    username,
		Role:        role,
		FeedID:      feed.ID,
		Bio:         strings.TrimSpace(in.Bio),
		DateOfBirth: in.DateOfBirth,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := s.store.Profiles.CreateWithFeed(ctx, p, feed); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "profile created", zap.String("profile_id", p.ID), zap.String("user_id", p.UserID))
	return p, nil
}

// GetProfile retrieves a profile by ID
func (s *graphService) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	return s.auth.profile(ctx, id, "id")
}

// GetProfileByUser retrieves the profile of an identity
func (s *graphService) GetProfileByUser(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.store.Profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("profile", "user_id", userID)
	}
	return p, nil
}

// UpdateProfile applies the non-nil fields to the caller's own profile
func (s *graphService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.Profile, error) {
	p, err := s.GetProfileByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		if p.Username, err = validateUsername(*in.Username); err != nil {
			return nil, err
		}
	}
	if in.Bio != nil {
		p.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.ProfilePicURL != nil {
		p.ProfilePicURL = strings.TrimSpace(*in.ProfilePicURL)
	}
	if in.CoverPicURL != nil {
		p.CoverPicURL = strings.TrimSpace(*in.CoverPicURL)
	}
	if in.DateOfBirth != nil {
		if in.DateOfBirth.After(time.Now()) {
			return nil, domain.Validation("date_of_birth", "date of birth is in the future")
		}
		p.DateOfBirth = in.DateOfBirth
	}
	p.UpdatedAt = now()

	if err := s.store.Profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SubscribeVIP records a subscription running until the given day and marks the profile VIP
func (s *graphService) SubscribeVIP(ctx context.Context, userID string, until time.Time) (*domain.VIPSubscription, error) {
	p, err := s.GetProfileByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ts := now()
	sub := &domain.VIPSubscription{
		ProfileID: p.ID,
		StartDate: ts,
		EndDate:   until.UTC(),
	}
	if !sub.IsActive(ts) {
		return nil, domain.Validation("end_date", "subscription must end today or later")
	}
	if err := s.store.Profiles.AddVIPSubscription(ctx, sub); err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "vip subscription added", zap.String("profile_id", p.ID), zap.Time("until", sub.EndDate))
	return sub, nil
}

// CreateClub stores the club, its profile, its feed and the admin set {actor}
func (s *graphService) CreateClub(ctx context.Context, actorID string, in CreateClubInput) (club *domain.Club, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.graph.create_club")
	defer func() { telemetry.EndSpan(span, err) }()

	if actorID == "" {
		return nil, domain.Validation("created_by", "creator is required")
	}
	name, err := domain.NormalizeClubName(in.Name)
	if err != nil {
		return nil, err
	}

	ts := now()
	clubID := uuid.New().String()
	profileID := uuid.New().String()
	feed := &domain.Feed{
		ID:        uuid.New().String(),
		Owner:     domain.ClubOwner(profileID),
		CreatedAt: ts,
	}
	cp := &domain.ClubProfile{
		ID:          profileID,
		ClubID:      clubID,
		FeedID:      feed.ID,
		ProfilePic:  strings.TrimSpace(in.ImageURL),
		Description: strings.TrimSpace(in.Description),
		Address:     strings.TrimSpace(in.Address),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	club = &domain.Club{
		ID:            clubID,
		Name:          name,
		MainLocation:  strings.TrimSpace(in.MainLocation),
		ContactNumber: strings.TrimSpace(in.ContactNumber),
		Description:   cp.Description,
		ImageURL:      cp.ProfilePic,
		CreatedBy:     actorID,
		ProfileID:     profileID,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	if err := s.store.Clubs.CreateWithProfile(ctx, club, cp, feed); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "club created", zap.String("club_id", club.ID), zap.String("created_by", actorID))
	return club, nil
}

// GetClub retrieves a club by ID
func (s *graphService) GetClub(ctx context.Context, id string) (*domain.Club, error) {
	club, err := s.store.Clubs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if club == nil {
		return nil, domain.NotFound("club", "id", id)
	}
	return club, nil
}

func (s *graphService) AddClubAdmin(ctx context.Context, actorID, clubID, userID string) (*domain.ClubAdmin, error) {
	if _, err := s.auth.requireClubAdmin(ctx, clubID, actorID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, domain.Validation("user_id", "user id is required")
	}
	admin := &domain.ClubAdmin{ClubID: clubID, UserID: userID, CreatedAt: now()}
	if err := s.store.Clubs.AddAdmin(ctx, admin); err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "club admin added", zap.String("club_id", clubID), zap.String("user_id", userID), zap.String("actor_id", actorID))
	return admin, nil
}

// RemoveClubAdmin drops userID from the admin set; the creator always stays
func (s *graphService) RemoveClubAdmin(ctx context.Context, actorID, clubID, userID string) error {
	club, err := s.auth.requireClubAdmin(ctx, clubID, actorID)
	if err != nil {
		return err
	}
	if userID == club.CreatedBy {
		return domain.ErrCreatorRemoval
	}
	if err := s.store.Clubs.RemoveAdmin(ctx, clubID, userID); err != nil {
		return err
	}
	logger.InfoCtx(ctx, "club admin removed", zap.String("club_id", clubID), zap.String("user_id", userID), zap.String("actor_id", actorID))
	return nil
}

func (s *graphService) ListClubAdmins(ctx context.Context, actorID, clubID string) ([]*domain.ClubAdmin, error) {
	if _, err := s.auth.requireClubAdmin(ctx, clubID, actorID); err != nil {
		return nil, err
	}
	return s.store.Clubs.ListAdmins(ctx, clubID)
}

// Follow creates the edge follower -> target
func (s *graphService) Follow(ctx context.Context, followerID string, target domain.Owner) (edge *domain.FollowEdge, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.graph.follow", trace.WithAttributes(
		telemetry.ProfileIDAttr(followerID),
		telemetry.OwnerKindAttr(string(target.Kind)),
	))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := domain.ValidateFollow(followerID, target); err != nil {
		return nil, err
	}
	if _, err := s.auth.profile(ctx, followerID, "follower_id"); err != nil {
		return nil, err
	}
	if err := s.auth.ownerExists(ctx, target, "target"); err != nil {
		return nil, err
	}

	edge = &domain.FollowEdge{FollowerID: followerID, Target: target, CreatedAt: now()}
	if err := s.store.Follows.Create(ctx, edge); err != nil {
		return nil, err
	}

	s.metrics.FollowsCreated.Inc(ctx, telemetry.OwnerKindAttr(string(target.Kind)))
	publish(ctx, s.publisher, events.Event{
		Type:       events.TypeFollowCreated,
		Key:        target.String(),
		OccurredAt: edge.CreatedAt,
		Data:       events.FollowCreated{FollowerID: followerID, Target: target},
	})
	return edge, nil
}

// Unfollow removes the edge; a later Follow recreates it
func (s *graphService) Unfollow(ctx context.Context, followerID string, target domain.Owner) error {
	if err := target.Validate(); err != nil {
		return err
	}
	return s.store.Follows.Delete(ctx, followerID, target)
}

func (s *graphService) ListFollowers(ctx context.Context, target domain.Owner, after string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := target.Validate(); err != nil {
			yield("", err)
			return
		}
		cursor := after
		for {
			edges, err := s.store.Follows.ListFollowers(ctx, target, cursor, s.pageSize)
			if err != nil {
				yield("", err)
				return
			}
			for _, e := range edges {
				cursor = e.FollowerID
				if !yield(e.FollowerID, nil) {
					return
				}
			}
			if len(edges) < s.pageSize {
				return
			}
		}
	}
}

func (s *graphService) ListFollowing(ctx context.Context, followerID string, after domain.Owner) iter.Seq2[domain.Owner, error] {
	return func(yield func(domain.Owner, error) bool) {
		cursor := after
		for {
			edges, err := s.store.Follows.ListFollowing(ctx, followerID, cursor, s.pageSize)
			if err != nil {
				yield(domain.Owner{}, err)
				return
			}
			for _, e := range edges {
				cursor = e.Target
				if !yield(e.Target, nil) {
					return
				}
			}
			if len(edges) < s.pageSize {
				return
			}
		}
	}
}
