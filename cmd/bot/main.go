package main

import (
	_ "time/tzdata" // LEADERBOARD_TZ on images without zoneinfo

	"spyton-bot/internal/cli"
)

func main() {
	cli.Execute()
}
