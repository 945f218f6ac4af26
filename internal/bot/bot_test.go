package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubScheduler bool

func (s stubScheduler) Running() bool { return bool(s) }

type stubStore struct{ err error }

func (s stubStore) Ping(ctx context.Context) error { return s.err }

func TestStatusText(t *testing.T) {
	b := &Bot{
		Resolver:  NewChatResolver(nil, nil),
		Channel:   "-100777",
		Scheduler: stubScheduler(true),
		Store:     stubStore{},
	}

	got := b.statusText(context.Background())
	for _, want := range []string{"-100777 (-100777)", "Database: ok", "Leaderboard scheduler: running"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in status, got %q", want, got)
		}
	}
}

func TestStatusText_Degraded(t *testing.T) {
	b := &Bot{
		Resolver: NewChatResolver(nil, nil),
		Channel:  "@spyton",
		Store:    stubStore{err: errors.New("connection refused")},
	}

	got := b.statusText(context.Background())
	for _, want := range []string{"@spyton (unresolved)", "Database: unavailable", "Leaderboard scheduler: stopped"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in status, got %q", want, got)
		}
	}
}
