package bot

import (
	"time"

	"spyton-bot/internal/models"
	"spyton-bot/internal/referral"

	"github.com/mymmrac/telego"
)

// memberEvent converts a chat_member update for the engine.
func memberEvent(upd *telego.ChatMemberUpdated) referral.MemberEvent {
	var user telego.User
	if upd.NewChatMember != nil {
		user = upd.NewChatMember.MemberUser()
	}

	ev := referral.MemberEvent{
		GroupID:   upd.Chat.ID,
		OldStatus: memberStatus(upd.OldChatMember),
		NewStatus: memberStatus(upd.NewChatMember),
		User:      userFrom(user),
	}
	if upd.InviteLink != nil {
		ev.InviteLink = upd.InviteLink.InviteLink
	}
	if upd.Date > 0 {
		ev.At = time.Unix(upd.Date, 0).UTC()
	}
	return ev
}

// memberStatus folds "restricted" into member or left depending on
// whether the user is actually in the chat.
func memberStatus(m telego.ChatMember) string {
	if m == nil {
		return referral.StatusLeft
	}
	if r, ok := m.(*telego.ChatMemberRestricted); ok {
		if r.IsMember {
			return referral.StatusMember
		}
		return referral.StatusLeft
	}
	return m.MemberStatus()
}

func userFrom(u telego.User) models.User {
	return models.User{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
	}
}
