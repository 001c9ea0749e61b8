// Package pagination serves a channel's history backward from a cursor.
package pagination

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"channel-service/internal/models"
	"channel-service/internal/repositories"
)

// DefaultPageSize is the number of messages per page.
const DefaultPageSize = 50

// Lister reads non-deleted messages newest first.
type Lister interface {
	ListBefore(ctx context.Context, channelID uuid.UUID, before *repositories.Boundary, limit int) ([]models.Message, error)
}

// Page is one slice of history, oldest first.
type Page struct {
	Messages   []models.Message `json:"messages"`
	HasMore    bool             `json:"has_more"`
	NextCursor *string          `json:"next_cursor"`
}

// Engine loads pages. It holds no per-reader state, so repeated loads with
// the same cursor return the same page.
type Engine struct {
	lister   Lister
	pageSize int
}

// NewEngine builds an Engine; a non-positive pageSize falls back to DefaultPageSize.
func NewEngine(lister Lister, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Engine{lister: lister, pageSize: pageSize}
}

// PageSize returns the configured page size.
func (e *Engine) PageSize() int {
	return e.pageSize
}

// LoadPage returns up to PageSize messages strictly older than cursor, or the
// newest page when cursor is empty.
func (e *Engine) LoadPage(ctx context.Context, channelID uuid.UUID, cursor string) (Page, error) {
	var before *repositories.Boundary
	if cursor != "" {
		b, err := DecodeCursor(cursor)
		if err != nil {
			return Page{}, err
		}
		before = b
	}

	rows, err := e.lister.ListBefore(ctx, channelID, before, e.pageSize+1)
	if err != nil {
		return Page{}, errors.Wrap(err, "list messages")
	}

	hasMore := len(rows) > e.pageSize
	if hasMore {
		rows = rows[:e.pageSize]
	}

	page := Page{Messages: make([]models.Message, 0, len(rows)), HasMore: hasMore}
	if hasMore {
		next := EncodeCursor(rows[len(rows)-1])
		page.NextCursor = &next
	}

	// rows are newest first; pages are displayed oldest first
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].IsDeleted {
			continue
		}
		page.Messages = append(page.Messages, rows[i])
	}
	return page, nil
}
