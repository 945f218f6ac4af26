package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	"github.com/redis/go-redis/v9"
)

const chatIDCacheTTL = 24 * time.Hour

// ChatResolver turns a channel reference (@handle or numeric id) into the
// numeric chat id, caching lookups in Redis.
type ChatResolver struct {
	Bot   *telego.Bot
	Redis *redis.Client
}

func NewChatResolver(bot *telego.Bot, rdb *redis.Client) *ChatResolver {
	return &ChatResolver{
		Bot:   bot,
		Redis: rdb,
	}
}

func (r *ChatResolver) Resolve(ctx context.Context, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, errors.New("empty chat reference")
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, nil
	}

	handle := normalizeHandle(ref)
	key := "chat_id:" + strings.ToLower(handle)

	if r.Redis != nil {
		cached, err := r.Redis.Get(ctx, key).Result()
		switch {
		case err == nil:
			if id, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
				return id, nil
			}
		case !errors.Is(err, redis.Nil):
			log.Printf("Chat id cache read failed for %s: %v", handle, err)
		}
	}

	if r.Bot == nil {
		return 0, fmt.Errorf("cannot resolve %s without a bot", handle)
	}
	chat, err := r.Bot.GetChat(ctx, &telego.GetChatParams{ChatID: telego.ChatID{Username: handle}})
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s: %w", handle, err)
	}

	if r.Redis != nil {
		if err := r.Redis.Set(ctx, key, strconv.FormatInt(chat.ID, 10), chatIDCacheTTL).Err(); err != nil {
			log.Printf("Chat id cache write failed for %s: %v", handle, err)
		}
	}
	log.Printf("Resolved %s to chat %d", handle, chat.ID)
	return chat.ID, nil
}

// normalizeHandle accepts "@name", "name" and "https://t.me/name".
func normalizeHandle(ref string) string {
	ref = strings.TrimPrefix(ref, "https://")
	ref = strings.TrimPrefix(ref, "http://")
	ref = strings.TrimPrefix(ref, "t.me/")
	ref = strings.TrimSuffix(ref, "/")
	if !strings.HasPrefix(ref, "@") {
		ref = "@" + ref
	}
	return ref
}
