package bot

import (
	"strings"
	"testing"

	"spyton-bot/internal/referral"
)

func TestRenderLeaderboard(t *testing.T) {
	entries := []referral.Entry{
		{InviterID: 1, Username: "alice", JoinCount: 3},
		{InviterID: 3, JoinCount: 2},
		{InviterID: 2, FirstName: "Bob", JoinCount: 2},
		{InviterID: 4, FirstName: "Dan", JoinCount: 1},
	}

	got := RenderLeaderboard("Top", entries)
	want := "<b>Top</b>\n\n" +
		"🥇 @alice - <b>3</b> invites\n" +
		"🥈 id 3 - <b>2</b> invites\n" +
		"🥉 Bob - <b>2</b> invites\n" +
		"4. Dan - <b>1</b> invite"
	if got != want {
		t.Errorf("unexpected leaderboard:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderLeaderboard_Empty(t *testing.T) {
	got := RenderLeaderboard("Top", nil)
	if !strings.Contains(got, "No referrals yet") {
		t.Errorf("expected empty state, got %q", got)
	}
}

func TestRenderLeaderboard_EscapesNames(t *testing.T) {
	got := RenderLeaderboard("<Top & co>", []referral.Entry{
		{InviterID: 9, FirstName: "<script>", JoinCount: 1},
	})
	if strings.Contains(got, "<script>") || strings.Contains(got, "<Top") {
		t.Errorf("expected html to be escaped, got %q", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("expected escaped name, got %q", got)
	}
}

func TestRenderInvite_EscapesLink(t *testing.T) {
	got := renderInvite("@spyton", "https://t.me/+a<b", 5)
	if !strings.Contains(got, "https://t.me/+a&lt;b") {
		t.Errorf("expected escaped link, got %q", got)
	}
	if !strings.Contains(got, "<b>5</b>") {
		t.Errorf("expected count, got %q", got)
	}
}

func TestRenderStats_Plural(t *testing.T) {
	if got := renderStats("@spyton", 1); !strings.Contains(got, "1</b> member ") {
		t.Errorf("expected singular, got %q", got)
	}
	if got := renderStats("@spyton", 0); !strings.Contains(got, "0</b> members ") {
		t.Errorf("expected plural, got %q", got)
	}
}
