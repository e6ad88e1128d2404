package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"without cause", New("Tracker.Process", "bad tool id"), "Tracker.Process: bad tool id"},
		{"with cause", Wrap(ErrRowMissing, "Store.GetToolCall", "lookup"), "Store.GetToolCall: lookup: row missing"},
		{"newf", Newf("Feed.Subscribe", "client %d", 7), "Feed.Subscribe: client 7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	err := Wrap(ErrNotFound, "Store.GetTimelineEvent", "query")
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = false, want true")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As failed")
	}
	if appErr.Op != "Store.GetTimelineEvent" {
		t.Errorf("Op = %q", appErr.Op)
	}
}

func TestWrapf(t *testing.T) {
	err := Wrapf(ErrClosed, "Ingest.Push", "agent %s", "a1")
	if !errors.Is(err, ErrClosed) {
		t.Error("wrapped sentinel lost")
	}
	if !strings.Contains(err.Error(), "agent a1") {
		t.Errorf("Error() = %q, want formatted message", err.Error())
	}
}
