package feed

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
)

// cursorState is the JSON body behind an opaque page token
type cursorState struct {
	CreatedAt time.Time `json:"ts"`
	ID        string    `json:"id"`
}

// EncodeCursor turns a feed position into an opaque base64url token.
// The zero position encodes to the empty token.
func EncodeCursor(p domain.FeedPosition) (string, error) {
	if p.IsZero() {
		return "", nil
	}
	data, err := json.Marshal(cursorState{CreatedAt: p.CreatedAt.UTC(), ID: p.ID})
	if err != nil {
		return "", domain.Infrastructure("encode cursor", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeCursor parses a token produced by EncodeCursor. The empty token is the head of the feed.
func DecodeCursor(token string) (domain.FeedPosition, error) {
	if token == "" {
		return domain.FeedPosition{}, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return domain.FeedPosition{}, domain.Validation("cursor", "malformed cursor")
	}
	var c cursorState
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.FeedPosition{}, domain.Validation("cursor", "malformed cursor")
	}
	if c.CreatedAt.IsZero() || c.ID == "" {
		return domain.FeedPosition{}, domain.Validation("cursor", "cursor is missing its position")
	}
	return domain.FeedPosition{CreatedAt: c.CreatedAt.UTC(), ID: c.ID}, nil
}
