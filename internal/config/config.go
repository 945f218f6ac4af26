package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser           string
	DBPassword       string
	DBName           string
	DBHost           string
	DBPort           string
	DBSSLMode        string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	BotToken         string
	ReferralChannel  string // @handle or numeric chat id
	AdminIDs         []int64
	LeaderboardTime  string // HH:MM in LeaderboardTZ
	LeaderboardTZ    string
	LeaderboardLimit int
	ExportMaxUsers   int
	ExportMaxInvites int
	ExportMaxJoins   int
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "spyton_bot"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		RedisHost:        getEnv("REDIS_HOST", "localhost"),
		RedisPort:        getEnv("REDIS_PORT", "6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		BotToken:         getEnv("TELEGRAM_BOT_TOKEN", ""),
		ReferralChannel:  getEnv("REFERRAL_CHANNEL", ""),
		AdminIDs:         parseIDs(getEnv("ADMIN_IDS", "")),
		LeaderboardTime:  getEnv("LEADERBOARD_TIME", "21:00"),
		LeaderboardTZ:    getEnv("LEADERBOARD_TZ", "UTC"),
		LeaderboardLimit: getEnvInt("LEADERBOARD_LIMIT", 10),
		ExportMaxUsers:   getEnvInt("EXPORT_MAX_USERS", 50000),
		ExportMaxInvites: getEnvInt("EXPORT_MAX_INVITES", 50000),
		ExportMaxJoins:   getEnvInt("EXPORT_MAX_JOINS", 50000),
	}
}

// Validate reports settings the bot cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.ReferralChannel == "" {
		errs = append(errs, errors.New("REFERRAL_CHANNEL is required"))
	}
	if _, _, err := c.LeaderboardClock(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LeaderboardClock parses LeaderboardTime.
func (c *Config) LeaderboardClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(c.LeaderboardTime))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid LEADERBOARD_TIME %q: want HH:MM", c.LeaderboardTime)
	}
	return t.Hour(), t.Minute(), nil
}

// Location loads LeaderboardTZ.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.LeaderboardTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid LEADERBOARD_TZ %q: %w", c.LeaderboardTZ, err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Ignoring invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

// parseIDs reads a comma separated list of Telegram ids, skipping junk.
func parseIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("Ignoring invalid admin id %q", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
