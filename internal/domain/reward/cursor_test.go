package reward

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := cursor{
		CreatedAt: time.Date(2025, 6, 1, 12, 30, 45, 123456789, time.UTC),
		ID:        uuid.New(),
	}

	got, err := decodeCursor(encodeCursor(want))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at mismatch: got %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if got.ID != want.ID {
		t.Errorf("id mismatch: got %v, want %v", got.ID, want.ID)
	}
}

func TestCursorRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"not base64 !!!",
		"bm8gc2VwYXJhdG9y",     // "no separator"
		"YmFkLXRpbWV8YmFkLWlk", // "bad-time|bad-id"
	}

	for _, tc := range cases {
		if _, err := decodeCursor(tc); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("decodeCursor(%q): expected ErrInvalidCursor, got %v", tc, err)
		}
	}
}
