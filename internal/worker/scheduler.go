package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"spyton-bot/internal/config"

	"github.com/redis/go-redis/v9"
)

const postedTTL = 48 * time.Hour

// Board is what the scheduler needs from the chat connector.
type Board interface {
	GroupID(ctx context.Context) (int64, error)
	RunDailyLeaderboard(ctx context.Context, groupID int64) (string, error)
	Post(ctx context.Context, chatID int64, text string) error
}

// Marker guards against posting the same day twice, across restarts.
type Marker interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisMarker struct {
	Redis *redis.Client
}

func NewRedisMarker(rdb *redis.Client) *RedisMarker {
	return &RedisMarker{Redis: rdb}
}

func (m *RedisMarker) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return m.Redis.SetNX(ctx, key, "true", ttl).Result()
}

func (m *RedisMarker) Release(ctx context.Context, key string) error {
	return m.Redis.Del(ctx, key).Err()
}

// Scheduler posts the leaderboard once a day at a configured local time.
type Scheduler struct {
	Board    Board
	Marker   Marker
	Hour     int
	Minute   int
	Location *time.Location
	Interval time.Duration

	now func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(board Board, marker Marker, cfg *config.Config) (*Scheduler, error) {
	hour, minute, err := cfg.LeaderboardClock()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		Board:    board,
		Marker:   marker,
		Hour:     hour,
		Minute:   minute,
		Location: loc,
		Interval: time.Minute,
		now:      time.Now,
	}, nil
}

// Start launches the loop in the background. It returns false if the
// scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	return true
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Printf("Leaderboard scheduler started, posting daily at %02d:%02d %s", s.Hour, s.Minute, s.Location)

	// Run once at start
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Leaderboard scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick posts today's leaderboard if the configured time has passed and
// nobody has posted it yet. It reports whether a post was sent.
func (s *Scheduler) tick(ctx context.Context) bool {
	now := s.clock().In(s.location())
	if now.Hour()*60+now.Minute() < s.Hour*60+s.Minute {
		return false
	}

	groupID, err := s.Board.GroupID(ctx)
	if err != nil {
		log.Printf("Leaderboard: cannot resolve group: %v", err)
		return false
	}

	key := fmt.Sprintf("leaderboard:posted:%d:%s", groupID, now.Format("2006-01-02"))
	claimed, err := s.Marker.Claim(ctx, key, postedTTL)
	if err != nil {
		log.Printf("Leaderboard: failed to claim %s: %v", key, err)
		return false
	}
	if !claimed {
		return false
	}

	text, err := s.Board.RunDailyLeaderboard(ctx, groupID)
	if err == nil {
		err = s.Board.Post(ctx, groupID, text)
	}
	if err != nil {
		log.Printf("Leaderboard: failed to post to %d: %v", groupID, err)
		if rerr := s.Marker.Release(ctx, key); rerr != nil {
			log.Printf("Leaderboard: failed to release %s: %v", key, rerr)
		}
		return false
	}

	log.Printf("Posted daily leaderboard to %d", groupID)
	return true
}

func (s *Scheduler) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Scheduler) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
