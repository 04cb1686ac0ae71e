package store

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kollabhq/kollab/internal/apierr"
)

// Cursor marks a position in a (created_at, id) ordered listing. The id
// breaks ties between rows created in the same instant.
type Cursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        uuid.UUID `json:"id"`
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by Encode. An empty token means the
// start of the listing and returns nil. A malformed token is a validation
// failure, not an internal error.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, apierr.Validation("invalid cursor")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, apierr.Validation("invalid cursor")
	}
	if c.CreatedAt.IsZero() || c.ID == uuid.Nil {
		return nil, apierr.Validation("invalid cursor")
	}
	return &c, nil
}
