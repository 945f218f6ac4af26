package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"spyton-bot/internal/config"
	"spyton-bot/internal/referral"
	"spyton-bot/internal/utils"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Telegram only lets bots download files up to 20 MB.
const maxBackupSize = 20 << 20

// StatusReporter is the part of the scheduler lifecycle the bot shows to admins.
type StatusReporter interface {
	Running() bool
}

// Pinger reports store availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Bot struct {
	Instance         *telego.Bot
	Engine           *referral.Engine
	Resolver         *ChatResolver
	Scheduler        StatusReporter
	Store            Pinger
	Channel          string
	AdminIDs         []int64
	LeaderboardLimit int
	ExportLimits     referral.Limits
}

func NewBot(instance *telego.Bot, engine *referral.Engine, resolver *ChatResolver, cfg *config.Config) *Bot {
	return &Bot{
		Instance:         instance,
		Engine:           engine,
		Resolver:         resolver,
		Channel:          cfg.ReferralChannel,
		AdminIDs:         cfg.AdminIDs,
		LeaderboardLimit: cfg.LeaderboardLimit,
		ExportLimits: referral.Limits{
			Users:   cfg.ExportMaxUsers,
			Invites: cfg.ExportMaxInvites,
			Joins:   cfg.ExportMaxJoins,
		},
	}
}

// GroupID resolves the configured referral channel.
func (b *Bot) GroupID(ctx context.Context) (int64, error) {
	return b.Resolver.Resolve(ctx, b.Channel)
}

// RunDailyLeaderboard renders the current leaderboard of a group.
func (b *Bot) RunDailyLeaderboard(ctx context.Context, groupID int64) (string, error) {
	entries, err := b.Engine.TopInviters(ctx, groupID, b.LeaderboardLimit)
	if err != nil {
		return "", err
	}
	return RenderLeaderboard("🏆 Daily referral leaderboard", entries), nil
}

// Post sends an HTML message to a chat.
func (b *Bot) Post(ctx context.Context, chatID int64, text string) error {
	_, err := b.Instance.SendMessage(ctx, tu.Message(tu.ID(chatID), text).
		WithParseMode(telego.ModeHTML).
		WithLinkPreviewOptions(&telego.LinkPreviewOptions{IsDisabled: true}))
	return err
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.Post(ctx, chatID, text); err != nil {
		log.Printf("Failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	return utils.IsAdmin(userID, b.AdminIDs)
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.Instance.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		AllowedUpdates: []string{"message", "chat_member"},
	})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		return fmt.Errorf("failed to create update handler: %w", err)
	}

	// /start command
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if err := b.Engine.Touch(ctx.Context(), userFrom(*message.From)); err != nil {
			log.Printf("Failed to save user %d: %v", message.From.ID, err)
		}

		b.reply(ctx.Context(), message.Chat.ID, fmt.Sprintf("👋 Hi, %s!\n\n"+
			"Grow %s and climb the leaderboard:\n"+
			"/ref - your personal invite link\n"+
			"/mystats - how many people you invited\n"+
			"/leaderboard - top inviters",
			escape(message.From.FirstName), escape(b.Channel)))
		return nil
	}, th.CommandEqual("start"))

	// /ref and /invite: personal invite link
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		b.handleReferral(ctx.Context(), message.Chat.ID, *message.From)
		return nil
	}, th.Or(th.CommandEqual("ref"), th.CommandEqual("invite")))

	// /mystats
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if err := b.Engine.Touch(ctx.Context(), userFrom(*message.From)); err != nil {
			log.Printf("Failed to save user %d: %v", message.From.ID, err)
		}

		groupID, err := b.GroupID(ctx.Context())
		if err != nil {
			log.Printf("Failed to resolve referral channel: %v", err)
			b.reply(ctx.Context(), message.Chat.ID, "❌ The referral channel is not reachable right now.")
			return nil
		}
		count, err := b.Engine.CountForInviter(ctx.Context(), groupID, message.From.ID)
		if err != nil {
			log.Printf("Failed to count joins for %d: %v", message.From.ID, err)
			b.reply(ctx.Context(), message.Chat.ID, "❌ Could not load your stats, try again later.")
			return nil
		}
		b.reply(ctx.Context(), message.Chat.ID, renderStats(b.Channel, count))
		return nil
	}, th.CommandEqual("mystats"))

	// /leaderboard and /top
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		groupID, err := b.GroupID(ctx.Context())
		if err != nil {
			log.Printf("Failed to resolve referral channel: %v", err)
			b.reply(ctx.Context(), message.Chat.ID, "❌ The referral channel is not reachable right now.")
			return nil
		}
		entries, err := b.Engine.TopInviters(ctx.Context(), groupID, b.LeaderboardLimit)
		if err != nil {
			log.Printf("Failed to load leaderboard: %v", err)
			b.reply(ctx.Context(), message.Chat.ID, "❌ Could not load the leaderboard, try again later.")
			return nil
		}
		b.reply(ctx.Context(), message.Chat.ID, RenderLeaderboard("🏆 Top inviters", entries))
		return nil
	}, th.Or(th.CommandEqual("leaderboard"), th.CommandEqual("top")))

	// /backup (admins only)
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.isAdmin(message.From.ID) {
			b.reply(ctx.Context(), message.Chat.ID, "⛔ This command is for admins only.")
			return nil
		}
		b.handleBackup(ctx.Context(), message.Chat.ID)
		return nil
	}, th.CommandEqual("backup"))

	// /status (admins only)
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if !b.isAdmin(message.From.ID) {
			b.reply(ctx.Context(), message.Chat.ID, "⛔ This command is for admins only.")
			return nil
		}
		b.reply(ctx.Context(), message.Chat.ID, b.statusText(ctx.Context()))
		return nil
	}, th.CommandEqual("status"))

	// Membership changes in the referral channel
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		ev := memberEvent(update.ChatMember)
		res, err := b.Engine.AttributeJoin(ctx.Context(), ev)
		if err != nil {
			log.Printf("Failed to attribute join of %d in %d: %v", ev.User.ID, ev.GroupID, err)
			return nil
		}
		if res.Attributed {
			log.Printf("User %d joined %d invited by %d", ev.User.ID, ev.GroupID, res.InviterID)
		} else if res.Reason != referral.ReasonNotAJoin {
			log.Printf("Join of %d in %d not attributed: %s", ev.User.ID, ev.GroupID, res.Reason)
		}
		return nil
	}, th.AnyChatMember())

	// Backup upload (admins only)
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if message.Document == nil || message.From == nil || !b.isAdmin(message.From.ID) {
			return nil
		}
		b.handleRestore(ctx.Context(), message.Chat.ID, message.Document)
		return nil
	}, th.AnyMessage())

	go func() {
		<-ctx.Done()
		handler.Stop()
	}()

	log.Println("Bot is polling for updates")
	handler.Start()
	return nil
}

func (b *Bot) handleReferral(ctx context.Context, chatID int64, from telego.User) {
	groupID, err := b.GroupID(ctx)
	if err != nil {
		log.Printf("Failed to resolve referral channel: %v", err)
		b.reply(ctx, chatID, "❌ The referral channel is not reachable right now.")
		return
	}

	link, err := b.Engine.GetOrCreateInviteLink(ctx, userFrom(from), groupID)
	if errors.Is(err, referral.ErrPermissionDenied) {
		log.Printf("Cannot create invite link in %d: %v", groupID, err)
		b.reply(ctx, chatID, renderPermissionHelp(b.Channel))
		return
	}
	if err != nil {
		log.Printf("Failed to get invite link for %d: %v", from.ID, err)
		b.reply(ctx, chatID, "❌ Could not create your invite link, try again later.")
		return
	}

	count, err := b.Engine.CountForInviter(ctx, groupID, from.ID)
	if err != nil {
		log.Printf("Failed to count joins for %d: %v", from.ID, err)
	}
	b.reply(ctx, chatID, renderInvite(b.Channel, link, count))
}

func (b *Bot) handleBackup(ctx context.Context, chatID int64) {
	snap, err := b.Engine.ExportSnapshot(ctx, b.ExportLimits)
	if err != nil {
		log.Printf("Failed to export snapshot: %v", err)
		b.reply(ctx, chatID, "❌ Backup failed, see logs.")
		return
	}
	data, err := snap.Marshal()
	if err != nil {
		log.Printf("Failed to encode snapshot: %v", err)
		b.reply(ctx, chatID, "❌ Backup failed, see logs.")
		return
	}

	name := fmt.Sprintf("spyton-backup-%s.json", snap.ExportedAt.Format("20060102-150405"))
	doc := tu.Document(tu.ID(chatID), tu.File(tu.NameReader(bytes.NewReader(data), name))).
		WithCaption(renderBackupCaption(snap))
	if _, err := b.Instance.SendDocument(ctx, doc); err != nil {
		log.Printf("Failed to send backup to %d: %v", chatID, err)
	}
}

func (b *Bot) handleRestore(ctx context.Context, chatID int64, doc *telego.Document) {
	if !strings.EqualFold(path.Ext(doc.FileName), ".json") {
		b.reply(ctx, chatID, "📎 Send a .json backup produced by /backup to restore it.")
		return
	}
	if doc.FileSize > maxBackupSize {
		b.reply(ctx, chatID, "❌ The file is too large to download (20 MB max).")
		return
	}

	file, err := b.Instance.GetFile(ctx, &telego.GetFileParams{FileID: doc.FileID})
	if err != nil {
		log.Printf("Failed to get backup file: %v", err)
		b.reply(ctx, chatID, "❌ Could not download the file.")
		return
	}
	data, err := tu.DownloadFile(b.Instance.FileDownloadURL(file.FilePath))
	if err != nil {
		log.Printf("Failed to download backup file: %v", err)
		b.reply(ctx, chatID, "❌ Could not download the file.")
		return
	}

	snap, err := referral.ParseSnapshot(data)
	if err != nil {
		log.Printf("Rejected backup %s: %v", doc.FileName, err)
		b.reply(ctx, chatID, "❌ Import failed: this does not look like a valid export.\n\n<code>"+escape(err.Error())+"</code>")
		return
	}
	res, err := b.Engine.ImportSnapshot(ctx, snap)
	if err != nil {
		b.reply(ctx, chatID, "❌ Import failed and nothing was changed. Check that the file is a valid export.")
		return
	}
	b.reply(ctx, chatID, renderImport(res))
}

func (b *Bot) statusText(ctx context.Context) string {
	scheduler := "stopped"
	if b.Scheduler != nil && b.Scheduler.Running() {
		scheduler = "running"
	}
	database := "ok"
	if b.Store != nil {
		if err := b.Store.Ping(ctx); err != nil {
			log.Printf("Store ping failed: %v", err)
			database = "unavailable"
		}
	}
	group := "unresolved"
	if id, err := b.GroupID(ctx); err == nil {
		group = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("⚙️ <b>Status</b>\n\nChannel: %s (%s)\nDatabase: %s\nLeaderboard scheduler: %s\nChecked at: %s",
		escape(b.Channel), group, database, scheduler, time.Now().UTC().Format("2006-01-02 15:04:05 MST"))
}
