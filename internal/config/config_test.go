package config

import (
	"strings"
	"testing"
)

func TestLoadConfig_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("LEADERBOARD_LIMIT", "ten")
	cfg := LoadConfig()

	if cfg.LeaderboardLimit != 10 {
		t.Errorf("expected leaderboard limit 10, got %d", cfg.LeaderboardLimit)
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("REFERRAL_CHANNEL", "@spyton")
	t.Setenv("ADMIN_IDS", "42, 7,oops,,-100")
	t.Setenv("LEADERBOARD_TIME", "08:30")
	t.Setenv("LEADERBOARD_TZ", "Europe/Berlin")
	t.Setenv("EXPORT_MAX_JOINS", "25")

	cfg := LoadConfig()

	if cfg.BotToken != "123:abc" {
		t.Errorf("unexpected bot token %q", cfg.BotToken)
	}
	want := []int64{42, 7, -100}
	if len(cfg.AdminIDs) != len(want) {
		t.Fatalf("expected admin ids %v, got %v", want, cfg.AdminIDs)
	}
	for i := range want {
		if cfg.AdminIDs[i] != want[i] {
			t.Errorf("admin id %d: want %d, got %d", i, want[i], cfg.AdminIDs[i])
		}
	}
	if cfg.ExportMaxJoins != 25 {
		t.Errorf("expected export max joins 25, got %d", cfg.ExportMaxJoins)
	}

	hour, minute, err := cfg.LeaderboardClock()
	if err != nil {
		t.Fatalf("LeaderboardClock: %v", err)
	}
	if hour != 8 || minute != 30 {
		t.Errorf("expected 08:30, got %02d:%02d", hour, minute)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := &Config{LeaderboardTime: "25:99", LeaderboardTZ: "Mars/Olympus"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"TELEGRAM_BOT_TOKEN", "REFERRAL_CHANNEL", "LEADERBOARD_TIME", "LEADERBOARD_TZ"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
