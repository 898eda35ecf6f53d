package handler

import (
	"io"
	"net/http"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/dto"
	"github.com/Riddimental/Backend-Noctra/internal/service"
	"github.com/Riddimental/Backend-Noctra/pkg/middleware"
	"github.com/Riddimental/Backend-Noctra/pkg/response"
	"github.com/gin-gonic/gin"
)

// PostHandler handles posts, tags, likes, comments and media uploads
type PostHandler struct {
	content       service.ContentService
	graph         service.GraphService
	maxUploadSize int64
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(content service.ContentService, graph service.GraphService, maxUploadSize int64) *PostHandler {
	return &PostHandler{content: content, graph: graph, maxUploadSize: maxUploadSize}
}

// Create handles POST /posts. Without an explicit owner the post goes to the
// caller's own feed.
func (h *PostHandler) Create(c *gin.Context) {
	ctx, span := startSpan(c, "handler.post.create")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreatePostRequest
	if !bindJSON(c, &req) {
		return
	}

	var owner domain.Owner
	if req.Owner != nil {
		o, err := req.Owner.Owner()
		if err != nil {
			fail(c, span, err)
			return
		}
		owner = o
	} else {
		_, p, err := currentProfile(ctx, c, h.graph)
		if err != nil {
			fail(c, span, err)
			return
		}
		owner = domain.UserOwner(p.ID)
	}

	post, err := h.content.CreatePost(ctx, userID, service.CreatePostInput{
		Owner:       owner,
		ContentType: req.ContentType,
		Payload: domain.PostPayload{
			Text:           req.Text,
			Media:          req.Media,
			OriginalPostID: req.OriginalPostID,
		},
		Tags: req.Tags,
	})
	if err != nil {
		fail(c, span, err)
		return
	}
	middleware.SetAuditResourceID(c, post.ID)
	c.JSON(http.StatusCreated, response.Success(post))
}

// Get handles GET /posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	ctx, span := startSpan(c, "handler.post.get")
	defer span.End()

	post, err := h.content.GetPost(ctx, c.Param("id"))
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(post))
}

// Edit handles PATCH /posts/:id
func (h *PostHandler) Edit(c *gin.Context) {
	ctx, span := startSpan(c, "handler.post.edit")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.EditPostRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := h.content.EditPost(ctx, userID, c.Param("id"), service.EditPostInput{Text: req.Text, Media: req.Media})
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(post))
}

// Delete handles DELETE /posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	ctx, span := startSpan(c, "handler.post.delete")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.content.DeletePost(ctx, userID, c.Param("id")); err != nil {
		fail(c, span, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddTag handles POST /posts/:id/tags
func (h *PostHandler) AddTag(c *gin.Context) {
	ctx, span := startSpan(c, "handler.post.add_tag")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.TagRequest
	if !bindJSON(c, &req) {
		return
	}

	tag, err := h.content.AddTag(ctx, userID, c.Param("id"), req.Name)
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(tag))
}

// RemoveTag handles DELETE /posts/:id/tags/:tag
func (h *PostHandler) RemoveTag(c *gin.Context) {
	ctx, span := startSpan(c, "handler.post.remove_tag")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.content.RemoveTag(ctx, userID, c.Param("id"), c.Param("tag")); err != nil {
		fail(c, span, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Like handles POST /posts/:id/likes
func (h *PostHandler) Like(c *gin.Context) {
	ctx, span := startSpan(c, "handler.post.like")
	defer span.End()

	if _, ok := currentUser(c); !ok {
		return
	}
	_, p, err := currentProfile(ctx, c, h.graph)
	if err != nil {
		fail(c, span, err)
		return
	}
	like, err := h.content.Like(ctx, p.ID, c.Param("id"))
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(like))
}

// Unlike handles DELETE /posts/:id/likes
func (h *PostHandler) Unlike(c *gin.Context) {
	ctx, span := startSpan(c, "handler.post.unlike")
	defer span.End()

	if _, ok := currentUser(c); !ok {
		return
	}
	_, p, err := currentProfile(ctx, c, h.graph)
	if err != nil {
		fail(c, span, err)
		return
	}
	if err := h.content.Unlike(ctx, p.ID, c.Param("id")); err != nil {
		fail(c, span, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CountLikes handles GET /posts/:id/likes
func (h *PostHandler) CountLikes(c *gin.Context) {
	ctx, span := startSpan(c, "handler.post.count_likes")
	defer span.End()

	postID := c.Param("id")
	n, err := h.content.CountLikes(ctx, postID)
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(dto.LikesResponse{PostID: postID, Count: n}))
}

// Comment handles POST /posts/:id/comments
func (h *PostHandler) Comment(c *gin.Context) {
	ctx, span := startSpan(c, "handler.post.comment")
	defer span.End()

	if _, ok := currentUser(c); !ok {
		return
	}
	var req dto.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	_, p, err := currentProfile(ctx, c, h.graph)
	if err != nil {
		fail(c, span, err)
		return
	}

	comment, err := h.content.Comment(ctx, p.ID, c.Param("id"), req.Text, req.ParentID)
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(comment))
}

// ListComments handles GET /posts/:id/comments - returns the reply tree
func (h *PostHandler) ListComments(c *gin.Context) {
	ctx, span := startSpan(c, "handler.post.list_comments")
	defer span.End()

	comments, err := h.content.ListComments(ctx, c.Param("id"))
	if err != nil {
		fail(c, span, err)
		return
	}
	if comments == nil {
		comments = []*domain.Comment{}
	}
	c.JSON(http.StatusOK, response.Success(comments))
}

// AttachMedia handles POST /posts/:id/media as multipart form data with
// fields file, kind and category
func (h *PostHandler) AttachMedia(c *gin.Context) {
	ctx, span := startSpan(c, "handler.post.attach_media")
	defer span.End()

	userID, ok := currentUser(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, span, domain.Validation("file", "file is required"))
		return
	}
	if h.maxUploadSize > 0 && fh.Size > h.maxUploadSize {
		fail(c, span, domain.Validation("file", "file exceeds %d bytes", h.maxUploadSize))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, span, domain.Validation("file", "file could not be read"))
		return
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxUploadSize > 0 {
		r = io.LimitReader(f, h.maxUploadSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		fail(c, span, domain.Validation("file", "file could not be read"))
		return
	}

	postID := c.Param("id")
	ref, err := h.content.AttachMedia(ctx, userID, postID, &domain.MediaUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Kind:        domain.MediaKind(c.PostForm("kind")),
		Category:    domain.MediaCategory(c.PostForm("category")),
		Size:        int64(len(data)),
		Data:        data,
	})
	if err != nil {
		fail(c, span, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(dto.MediaResponse{PostID: postID, Ref: ref}))
}
