package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"spyton-bot/internal/bot"
	"spyton-bot/internal/config"
	"spyton-bot/internal/database"
	"spyton-bot/internal/referral"
	"spyton-bot/internal/repository"
	"spyton-bot/internal/worker"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spyton-bot",
	Short: "Telegram referral bot with invite tracking and a daily leaderboard",
	Run:   runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and the leaderboard scheduler",
	Args:  cobra.NoArgs,
	Run:   runServe,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a referral snapshot as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		cfg := config.LoadConfig()

		engine, err := offlineEngine(cfg)
		if err != nil {
			return err
		}
		snap, err := engine.ExportSnapshot(cmd.Context(), referral.Limits{
			Users:   cfg.ExportMaxUsers,
			Invites: cfg.ExportMaxInvites,
			Joins:   cfg.ExportMaxJoins,
		})
		if err != nil {
			return err
		}
		data, err := snap.Marshal()
		if err != nil {
			return err
		}

		if out == "" || out == "-" {
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(out, data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		log.Printf("Snapshot %s written to %s", snap.ID, out)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore a referral snapshot from a JSON file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		snap, err := referral.ParseSnapshot(data)
		if err != nil {
			return err
		}

		engine, err := offlineEngine(config.LoadConfig())
		if err != nil {
			return err
		}
		res, err := engine.ImportSnapshot(cmd.Context(), snap)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d users, %d invites, %d joins (%d already recorded)\n",
			res.Users, res.Invites, res.JoinsAdded, res.JoinsSkipped)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "Output file (stdout when empty)")
	importCmd.Flags().StringP("file", "f", "", "Snapshot file to import")
	_ = importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// offlineEngine serves export and import without Telegram.
func offlineEngine(cfg *config.Config) (*referral.Engine, error) {
	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		return nil, err
	}
	return referral.NewEngine(repository.NewRepository(db), nil), nil
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}
	defer rdb.Close()

	tgBot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	repo := repository.NewRepository(db)
	engine := referral.NewEngine(repo, bot.NewInviteIssuer(tgBot))
	b := bot.NewBot(tgBot, engine, bot.NewChatResolver(tgBot, rdb), cfg)
	b.Store = repo

	scheduler, err := worker.NewScheduler(b, worker.NewRedisMarker(rdb), cfg)
	if err != nil {
		log.Fatalf("Invalid leaderboard schedule: %v", err)
	}
	b.Scheduler = scheduler
	scheduler.Start(ctx)
	defer scheduler.Stop()

	log.Println("Service started successfully")
	if err := b.Start(ctx); err != nil {
		log.Fatalf("Bot stopped: %v", err)
	}
	log.Println("Shutting down")
}
