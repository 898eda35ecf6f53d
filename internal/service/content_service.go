package service

import (
	"context"
	"slices"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/events"
	"github.com/Riddimental/Backend-Noctra/internal/repository"
	"github.com/Riddimental/Backend-Noctra/pkg/logger"
	"github.com/Riddimental/Backend-Noctra/pkg/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contentService implements the ContentService interface
type contentService struct {
	store         *repository.Store
	auth          authorizer
	media         MediaStorage
	publisher     events.Publisher
	metrics       *telemetry.Metrics
	maxUploadSize int64
}

// NewContentService creates a new ContentService
func NewContentService(store *repository.Store, media MediaStorage, publisher events.Publisher, metrics *telemetry.Metrics, maxUploadSize int64) ContentService {
	return &contentService{
		store:         store,
		auth:          authorizer{store: store},
		media:         media,
		publisher:     publisher,
		metrics:       metrics,
		maxUploadSize: maxUploadSize,
	}
}

// CreatePost appends a post to the owner's feed
func (s *contentService) CreatePost(ctx context.Context, actorID string, in CreatePostInput) (post *domain.Post, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.content.create_post", trace.WithAttributes(
		telemetry.OwnerKindAttr(string(in.Owner.Kind)),
		telemetry.ContentTypeAttr(in.ContentType),
	))
	defer func() { telemetry.EndSpan(span, err) }()

	ct, err := domain.ParseContentType(in.ContentType)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePayload(in.Owner, ct, in.Payload); err != nil {
		return nil, err
	}
	var tags []string
	for _, raw := range in.Tags {
		name, err := domain.NormalizeTag(raw)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(tags, name) {
			tags = append(tags, name)
		}
	}
	if err := s.auth.requireOwner(ctx, in.Owner, actorID); err != nil {
		return nil, err
	}

	feed, err := s.store.Feeds.GetByOwner(ctx, in.Owner)
	if err != nil {
		return nil, err
	}
	if feed == nil {
		return nil, domain.NotFound("feed", "owner.id", in.Owner.ID)
	}
	if in.Payload.OriginalPostID != nil {
		orig, err := s.store.Posts.GetByID(ctx, *in.Payload.OriginalPostID)
		if err != nil {
			return nil, err
		}
		if orig == nil {
			return nil, domain.NotFound("post", "original_post_id", *in.Payload.OriginalPostID)
		}
	}

	post = &domain.Post{
		ID:             uuid.New().String(),
		FeedID:         feed.ID,
		Owner:          in.Owner,
		ContentType:    ct,
		Text:           in.Payload.Text,
		Media:          append([]string(nil), in.Payload.Media...),
		OriginalPostID: in.Payload.OriginalPostID,
		Tags:           tags,
		CreatedAt:      now(),
	}
	if err := s.store.Posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.metrics.PostsCreated.Inc(ctx, telemetry.ContentTypeAttr(string(ct)), telemetry.OwnerKindAttr(string(in.Owner.Kind)))
	publish(ctx, s.publisher, events.Event{
		Type:       events.TypePostCreated,
		Key:        post.FeedID,
		OccurredAt: post.CreatedAt,
		Data: events.PostCreated{
			PostID:      post.ID,
			FeedID:      post.FeedID,
			Owner:       post.Owner,
			ContentType: post.ContentType,
		},
	})
	logger.DebugCtx(ctx, "post created", zap.String("post_id", post.ID), zap.String("feed_id", post.FeedID))
	return post, nil
}

// GetPost retrieves a post by ID
func (s *contentService) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	post, err := s.store.Posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, domain.NotFound("post", "id", id)
	}
	return post, nil
}

// ownedPost loads a post and checks actorID may act for its owner
func (s *contentService) ownedPost(ctx context.Context, actorID, postID string) (*domain.Post, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.auth.requireOwner(ctx, post.Owner, actorID); err != nil {
		return nil, err
	}
	return post, nil
}

// EditPost rewrites text or media and stamps edited_at
func (s *contentService) EditPost(ctx context.Context, actorID, postID string, in EditPostInput) (*domain.Post, error) {
	post, err := s.ownedPost(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}
	payload := domain.PostPayload{Text: post.Text, Media: post.Media, OriginalPostID: post.OriginalPostID}
	if in.Text != nil {
		payload.Text = *in.Text
	}
	if in.Media != nil {
		payload.Media = in.Media
	}
	if err := domain.ValidatePayload(post.Owner, post.ContentType, payload); err != nil {
		return nil, err
	}

	edited := now()
	post.Text = payload.Text
	post.Media = append([]string(nil), payload.Media...)
	post.EditedAt = &edited
	if err := s.store.Posts.UpdateContent(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes the post with its likes, comments and tag links
func (s *contentService) DeletePost(ctx context.Context, actorID, postID string) error {
	if _, err := s.ownedPost(ctx, actorID, postID); err != nil {
		return err
	}
	if err := s.store.Posts.Delete(ctx, postID); err != nil {
		return err
	}
	logger.InfoCtx(ctx, "post deleted", zap.String("post_id", postID), zap.String("actor_id", actorID))
	return nil
}

// AddTag links a normalized tag, creating it on first use
func (s *contentService) AddTag(ctx context.Context, actorID, postID, name string) (*domain.Tag, error) {
	normalized, err := domain.NormalizeTag(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedPost(ctx, actorID, postID); err != nil {
		return nil, err
	}
	return s.store.Posts.AttachTag(ctx, postID, normalized)
}

func (s *contentService) RemoveTag(ctx context.Context, actorID, postID, name string) error {
	normalized, err := domain.NormalizeTag(name)
	if err != nil {
		return err
	}
	if _, err := s.ownedPost(ctx, actorID, postID); err != nil {
		return err
	}
	return s.store.Posts.DetachTag(ctx, postID, normalized)
}

// AttachMedia stores the upload and appends the returned reference to the post
func (s *contentService) AttachMedia(ctx context.Context, actorID, postID string, upload *domain.MediaUpload) (ref string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.content.attach_media", trace.WithAttributes(telemetry.PostIDAttr(postID)))
	defer func() { telemetry.EndSpan(span, err) }()

	if upload == nil {
		return "", domain.Validation("file", "file is required")
	}
	if err := upload.Validate(s.maxUploadSize); err != nil {
		return "", err
	}
	if _, err := s.ownedPost(ctx, actorID, postID); err != nil {
		return "", err
	}
	ref, err = s.media.Put(ctx, upload)
	if err != nil {
		return "", domain.Infrastructure("store media", err)
	}
	if err := s.store.Posts.AppendMedia(ctx, postID, ref); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *contentService) Like(ctx context.Context, profileID, postID string) (*domain.Like, error) {
	if _, err := s.auth.profile(ctx, profileID, "profile_id"); err != nil {
		return nil, err
	}
	like := &domain.Like{ProfileID: profileID, PostID: postID, CreatedAt: now()}
	if err := s.store.Engagement.CreateLike(ctx, like); err != nil {
		return nil, err
	}
	return like, nil
}

func (s *contentService) Unlike(ctx context.Context, profileID, postID string) error {
	return s.store.Engagement.DeleteLike(ctx, profileID, postID)
}

func (s *contentService) CountLikes(ctx context.Context, postID string) (int, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return 0, err
	}
	return s.store.Engagement.CountLikes(ctx, postID)
}

// Comment adds a comment, optionally as a reply to a comment on the same post
func (s *contentService) Comment(ctx context.Context, profileID, postID, text string, parentID *string) (*domain.Comment, error) {
	text, err := domain.ValidateCommentText(text)
	if err != nil {
		return nil, err
	}
	if _, err := s.auth.profile(ctx, profileID, "profile_id"); err != nil {
		return nil, err
	}
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := s.store.Engagement.GetComment(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.PostID != postID {
			return nil, domain.ErrInvalidParent
		}
	}

	comment := &domain.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		ProfileID: profileID,
		Text:      text,
		ParentID:  parentID,
		CreatedAt: now(),
	}
	if err := s.store.Engagement.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *contentService) ListComments(ctx context.Context, postID string) ([]*domain.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	flat, err := s.store.Engagement.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return domain.BuildCommentTree(flat), nil
}
