package domain

import (
	"strings"
	"time"
)

// ContentType is the closed set of post kinds
type ContentType string

const (
	ContentText    ContentType = "text"
	ContentImage   ContentType = "image"
	ContentVideo   ContentType = "video"
	ContentStory   ContentType = "story"
	ContentPromo   ContentType = "promo"
	ContentMenu    ContentType = "menu"
	ContentProduct ContentType = "product"
)

var contentTypes = map[ContentType]bool{
	ContentText:    false,
	ContentImage:   false,
	ContentVideo:   false,
	ContentStory:   false,
	ContentPromo:   true,
	ContentMenu:    true,
	ContentProduct: true,
}

// ParseContentType validates a wire value
func ParseContentType(s string) (ContentType, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := contentTypes[ct]; !ok {
		return "", ErrInvalidContentType
	}
	return ct, nil
}

// ClubOnly reports whether only clubs may publish this type
func (c ContentType) ClubOnly() bool {
	return contentTypes[c]
}

// RequiresMedia reports whether a post of this type needs at least one media reference
func (c ContentType) RequiresMedia() bool {
	return c == ContentImage || c == ContentVideo
}

// Post is a single entry in a feed
type Post struct {
	ID             string      `json:"id"`
	FeedID         string      `json:"feed_id"`
	Owner          Owner       `json:"owner"`
	ContentType    ContentType `json:"content_type"`
	Text           string      `json:"text,omitempty"`
	Media          []string    `json:"media,omitempty"`
	Tags           []string    `json:"tags,omitempty"`
	OriginalPostID *string     `json:"original_post_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	EditedAt       *time.Time  `json:"edited_at,omitempty"`
}

// PostPayload is the content portion of a create or edit
type PostPayload struct {
	Text           string
	Media          []string
	OriginalPostID *string
}

const maxPostText = 5000

// ValidatePayload checks a payload against the content type and owner branch
func ValidatePayload(owner Owner, ct ContentType, p PostPayload) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if _, ok := contentTypes[ct]; !ok {
		return ErrInvalidContentType
	}
	if ct.ClubOnly() && !owner.IsClub() {
		return &Error{Kind: KindValidation, Code: ErrInvalidContentType.Code, Field: "content_type", Message: string(ct) + " posts are only available to clubs"}
	}
	if len(p.Text) > maxPostText {
		return Validation("text", "text must not exceed %d characters", maxPostText)
	}
	if ct == ContentText && strings.TrimSpace(p.Text) == "" {
		return Validation("text", "text is required for text posts")
	}
	if ct.RequiresMedia() && len(p.Media) == 0 {
		return Validation("media", "%s posts require at least one media reference", ct)
	}
	for i, m := range p.Media {
		if strings.TrimSpace(m) == "" {
			return Validation("media", "media reference %d is empty", i)
		}
	}
	return nil
}
