package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"channel-service/internal/models"
	"channel-service/internal/repositories"
)

// ErrInvalidCursor is returned for cursors this service did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")

type messageCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uuid.UUID `json:"id"`
}

// EncodeCursor builds the opaque boundary that points just before m.
func EncodeCursor(m models.Message) string {
	data, _ := json.Marshal(messageCursor{CreatedAt: m.CreatedAt.UTC(), ID: m.ID})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a cursor produced by EncodeCursor.
func DecodeCursor(cursor string) (*repositories.Boundary, error) {
	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidCursor, err.Error())
	}
	var mc messageCursor
	if err := json.Unmarshal(data, &mc); err != nil {
		return nil, errors.Wrap(ErrInvalidCursor, err.Error())
	}
	if mc.CreatedAt.IsZero() {
		return nil, errors.Wrap(ErrInvalidCursor, "missing created_at")
	}
	return &repositories.Boundary{CreatedAt: mc.CreatedAt, ID: mc.ID}, nil
}
