package bot

import (
	"fmt"
	"html"
	"strings"

	"spyton-bot/internal/referral"
)

var medals = []string{"🥇", "🥈", "🥉"}

// RenderLeaderboard formats ranked inviters as a Telegram HTML message.
func RenderLeaderboard(title string, entries []referral.Entry) string {
	var sb strings.Builder
	sb.WriteString("<b>" + html.EscapeString(title) + "</b>\n\n")

	if len(entries) == 0 {
		sb.WriteString("No referrals yet. Use /ref to get your invite link!")
		return sb.String()
	}

	for i, e := range entries {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&sb, "%s %s - <b>%d</b> %s\n", rank, html.EscapeString(e.DisplayName()), e.JoinCount, plural(e.JoinCount, "invite", "invites"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderInvite(channel, link string, count int64) string {
	return fmt.Sprintf("🔗 <b>Your invite link to %s</b>\n<code>%s</code>\n\n👥 Invited so far: <b>%d</b>",
		html.EscapeString(channel), html.EscapeString(link), count)
}

func renderStats(channel string, count int64) string {
	return fmt.Sprintf("📊 You have invited <b>%d</b> %s to %s.",
		count, plural(count, "member", "members"), html.EscapeString(channel))
}

func renderPermissionHelp(channel string) string {
	return fmt.Sprintf("⚠️ I can't create invite links for %s.\n\n"+
		"Ask an admin to make me an administrator there with the <b>Invite users via link</b> permission, then try /ref again.",
		html.EscapeString(channel))
}

func renderImport(res referral.ImportResult) string {
	return fmt.Sprintf("✅ <b>Backup restored</b>\n\nUsers: %d\nInvite links: %d\nJoins added: %d\nJoins already recorded: %d",
		res.Users, res.Invites, res.JoinsAdded, res.JoinsSkipped)
}

func renderBackupCaption(snap *referral.Snapshot) string {
	return fmt.Sprintf("💾 Backup %s\nUsers: %d · Invites: %d · Joins: %d",
		snap.ExportedAt.Format("2006-01-02 15:04 MST"), len(snap.Users), len(snap.Invites), len(snap.Joins))
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func escape(s string) string {
	return html.EscapeString(s)
}
