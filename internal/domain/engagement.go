package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Like records a profile liking a post, unique per pair
type Like struct {
	ProfileID string    `json:"profile_id"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a node in a post's comment tree
type Comment struct {
	ID        string     `json:"id"`
	PostID    string     `json:"post_id"`
	ProfileID string     `json:"profile_id"`
	Text      string     `json:"text"`
	ParentID  *string    `json:"parent_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Replies   []*Comment `json:"replies,omitempty"`
}

const maxCommentText = 2000

// ValidateCommentText trims and bounds comment text
func ValidateCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", Validation("text", "comment text is required")
	}
	if len(text) > maxCommentText {
		return "", Validation("text", "comment must not exceed %d characters", maxCommentText)
	}
	return text, nil
}

// BuildCommentTree nests a flat, creation-ordered comment list under its parents
func BuildCommentTree(flat []*Comment) []*Comment {
	byID := make(map[string]*Comment, len(flat))
	for _, c := range flat {
		c.Replies = nil
		byID[c.ID] = c
	}
	roots := make([]*Comment, 0)
	for _, c := range flat {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}

// Tag is a case-insensitively unique label
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var tagFolder = cases.Lower(language.Und)

// NormalizeTag trims and lowercases a tag name (Unicode aware)
func NormalizeTag(name string) (string, error) {
	name = strings.TrimSpace(norm.NFC.String(name))
	name = strings.TrimPrefix(name, "#")
	if name == "" {
		return "", Validation("tag", "tag name is required")
	}
	if len([]rune(name)) > 64 {
		return "", Validation("tag", "tag must not exceed 64 characters")
	}
	return tagFolder.String(name), nil
}
