package cursor

import (
	"errors"
	"testing"
	"time"

	"github.com/anonto42/social-graph/backend/pkg/apperror"
)

func TestEncodeDecode(t *testing.T) {
	p := Position{CreatedAt: time.Date(2026, 3, 1, 12, 30, 0, 123456000, time.UTC), ID: 42}
	got, err := Decode(Encode(p))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) || got.ID != p.ID {
		t.Errorf("Decode(Encode(%s)) = %s", p, got)
	}
}

func TestDecodeEmptyIsFirstPage(t *testing.T) {
	got, err := Decode("")
	if err != nil || !got.IsZero() {
		t.Errorf("Decode(\"\") = %v, %v", got, err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, in := range []string{"!!!", "bm9jb2xvbg", "YWJjOjE", "MTIzOmFiYw", "MTIzOjA"} {
		if _, err := Decode(in); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Decode(%q) error = %v, want ErrValidation", in, err)
		}
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{1, 1},
		{MaxLimit, MaxLimit},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Position{
		{CreatedAt: base.Add(3 * time.Second), ID: 3},
		{CreatedAt: base.Add(2 * time.Second), ID: 2},
		{CreatedAt: base.Add(1 * time.Second), ID: 1},
	}
	key := func(p Position) Position { return p }

	page := Paginate(rows, 2, key)
	if len(page.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(page.Items))
	}
	next, err := Decode(page.NextCursor)
	if err != nil || next.ID != 2 {
		t.Errorf("next cursor = %v, %v; want id 2", next, err)
	}

	last := Paginate(rows[2:], 2, key)
	if last.NextCursor != "" {
		t.Errorf("last page should have no cursor, got %q", last.NextCursor)
	}

	empty := Paginate[Position](nil, 2, key)
	if empty.Items == nil || len(empty.Items) != 0 {
		t.Errorf("empty page Items = %#v", empty.Items)
	}
}
