// Package cursor implements keyset pagination positions over
// (created_at DESC, id DESC) orderings.
package cursor

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anonto42/social-graph/backend/pkg/apperror"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Position is the sort key of the last row a client has seen.
type Position struct {
	CreatedAt time.Time
	ID        uint
}

// Page is one slice of a keyset-paginated listing. NextCursor is empty on
// the last page.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func (p Position) IsZero() bool {
	return p.ID == 0 && p.CreatedAt.IsZero()
}

// Encode returns the opaque form handed to clients.
func Encode(p Position) string {
	raw := strconv.FormatInt(p.CreatedAt.UTC().UnixNano(), 10) + ":" + strconv.FormatUint(uint64(p.ID), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a client cursor. The empty string is the first page.
func Decode(s string) (Position, error) {
	if s == "" {
		return Position{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Position{}, apperror.Validation("malformed cursor")
	}
	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Position{}, apperror.Validation("malformed cursor")
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return Position{}, apperror.Validation("malformed cursor")
	}
	u, err := strconv.ParseUint(id, 10, 64)
	if err != nil || u == 0 {
		return Position{}, apperror.Validation("malformed cursor")
	}
	return Position{CreatedAt: time.Unix(0, n).UTC(), ID: uint(u)}, nil
}

// ClampLimit applies the default and maximum page sizes.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Paginate trims a limit+1 fetch down to limit and derives the next cursor
// from the last kept row.
func Paginate[T any](rows []T, limit int, key func(T) Position) Page[T] {
	page := Page[T]{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		page.NextCursor = Encode(key(page.Items[limit-1]))
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page
}

func (p Position) String() string {
	return fmt.Sprintf("(%s, %d)", p.CreatedAt.Format(time.RFC3339Nano), p.ID)
}
