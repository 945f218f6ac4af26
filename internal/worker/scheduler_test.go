package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spyton-bot/internal/config"
)

type fakeBoard struct {
	mu      sync.Mutex
	groupID int64
	postErr error
	posts   []string
}

func (b *fakeBoard) GroupID(ctx context.Context) (int64, error) {
	return b.groupID, nil
}

func (b *fakeBoard) RunDailyLeaderboard(ctx context.Context, groupID int64) (string, error) {
	return "board", nil
}

func (b *fakeBoard) Post(ctx context.Context, chatID int64, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.postErr != nil {
		return b.postErr
	}
	b.posts = append(b.posts, text)
	return nil
}

func (b *fakeBoard) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.posts)
}

type fakeMarker struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeMarker() *fakeMarker {
	return &fakeMarker{keys: map[string]bool{}}
}

func (m *fakeMarker) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *fakeMarker) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func newTestScheduler(board Board, marker Marker, now *time.Time) *Scheduler {
	return &Scheduler{
		Board:    board,
		Marker:   marker,
		Hour:     21,
		Minute:   0,
		Location: time.UTC,
		Interval: time.Hour,
		now:      func() time.Time { return *now },
	}
}

func TestTick_PostsOncePerDay(t *testing.T) {
	board := &fakeBoard{groupID: -100}
	marker := newFakeMarker()
	now := time.Date(2026, 3, 1, 20, 59, 0, 0, time.UTC)
	s := newTestScheduler(board, marker, &now)
	ctx := context.Background()

	if s.tick(ctx) {
		t.Fatal("expected no post before the configured time")
	}

	now = now.Add(time.Minute)
	if !s.tick(ctx) {
		t.Fatal("expected a post at the configured time")
	}
	now = now.Add(2 * time.Hour)
	if s.tick(ctx) {
		t.Fatal("expected no second post on the same day")
	}

	now = time.Date(2026, 3, 2, 21, 5, 0, 0, time.UTC)
	if !s.tick(ctx) {
		t.Fatal("expected a post on the next day")
	}
	if board.count() != 2 {
		t.Errorf("expected 2 posts, got %d", board.count())
	}
	if !marker.keys["leaderboard:posted:-100:2026-03-01"] || !marker.keys["leaderboard:posted:-100:2026-03-02"] {
		t.Errorf("unexpected guard keys %v", marker.keys)
	}
}

func TestTick_UsesConfiguredZone(t *testing.T) {
	board := &fakeBoard{groupID: -100}
	marker := newFakeMarker()
	// 19:30 UTC is 22:30 at UTC+3, past 21:00 local.
	now := time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC)
	s := newTestScheduler(board, marker, &now)
	s.Location = time.FixedZone("UTC+3", 3*60*60)

	if !s.tick(context.Background()) {
		t.Fatal("expected a post once local time passed 21:00")
	}

	// 22:00 UTC is already the next local day.
	now = time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	if s.tick(context.Background()) {
		t.Fatal("expected no post before 21:00 on the next local day")
	}
}

func TestTick_ReleasesGuardWhenPostFails(t *testing.T) {
	board := &fakeBoard{groupID: -100, postErr: errors.New("telegram down")}
	marker := newFakeMarker()
	now := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)
	s := newTestScheduler(board, marker, &now)

	if s.tick(context.Background()) {
		t.Fatal("expected failed post to report false")
	}
	if len(marker.keys) != 0 {
		t.Fatalf("expected guard to be released, got %v", marker.keys)
	}

	board.mu.Lock()
	board.postErr = nil
	board.mu.Unlock()
	if !s.tick(context.Background()) {
		t.Fatal("expected retry to post")
	}
}

func TestScheduler_Lifecycle(t *testing.T) {
	board := &fakeBoard{groupID: -100}
	now := time.Date(2026, 3, 1, 21, 30, 0, 0, time.UTC)
	s := newTestScheduler(board, newFakeMarker(), &now)

	if s.Running() {
		t.Fatal("expected scheduler to start stopped")
	}
	if !s.Start(context.Background()) {
		t.Fatal("expected first Start to succeed")
	}
	if s.Start(context.Background()) {
		t.Error("expected second Start to be refused")
	}
	if !s.Running() {
		t.Error("expected scheduler to be running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for board.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if board.count() != 1 {
		t.Errorf("expected the start-up tick to post once, got %d", board.count())
	}

	s.Stop()
	if s.Running() {
		t.Error("expected scheduler to be stopped")
	}
	s.Stop()

	if !s.Start(context.Background()) {
		t.Error("expected restart after Stop to succeed")
	}
	s.Stop()
}

func TestNewScheduler_InvalidConfig(t *testing.T) {
	board := &fakeBoard{}
	if _, err := NewScheduler(board, newFakeMarker(), &config.Config{LeaderboardTime: "9pm", LeaderboardTZ: "UTC"}); err == nil {
		t.Error("expected error for bad time")
	}
	if _, err := NewScheduler(board, newFakeMarker(), &config.Config{LeaderboardTime: "21:00", LeaderboardTZ: "Mars/Olympus"}); err == nil {
		t.Error("expected error for bad zone")
	}

	s, err := NewScheduler(board, newFakeMarker(), &config.Config{LeaderboardTime: "08:15", LeaderboardTZ: "UTC"})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s.Hour != 8 || s.Minute != 15 {
		t.Errorf("expected 08:15, got %02d:%02d", s.Hour, s.Minute)
	}
}
