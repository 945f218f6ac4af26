package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"spyton-bot/internal/referral"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	tu "github.com/mymmrac/telego/telegoutil"
)

// InviteIssuer creates invite links through the Bot API.
type InviteIssuer struct {
	Bot *telego.Bot
}

func NewInviteIssuer(bot *telego.Bot) *InviteIssuer {
	return &InviteIssuer{Bot: bot}
}

// CreateInviteLink creates a named link that admits users directly,
// without a join request.
func (i *InviteIssuer) CreateInviteLink(ctx context.Context, groupID int64, name string) (string, error) {
	link, err := i.Bot.CreateChatInviteLink(ctx, &telego.CreateChatInviteLinkParams{
		ChatID:             tu.ID(groupID),
		Name:               name,
		CreatesJoinRequest: false,
	})
	if err != nil {
		if isPermissionError(err) {
			return "", fmt.Errorf("%w: %v", referral.ErrPermissionDenied, err)
		}
		return "", fmt.Errorf("failed to create invite link: %w", err)
	}
	return link.InviteLink, nil
}

// Telegram reports missing rights as 400 or 403 depending on the chat type.
var permissionHints = []string{
	"not enough rights",
	"chat_admin_required",
	"need administrator rights",
	"administrator rights",
	"bot is not a member",
}

func isPermissionError(err error) bool {
	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode == http.StatusForbidden {
			return true
		}
		if containsAny(strings.ToLower(apiErr.Description), permissionHints) {
			return true
		}
	}
	return containsAny(strings.ToLower(err.Error()), permissionHints)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
