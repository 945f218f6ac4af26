package referral

import (
	"context"
	"fmt"
	"strconv"
)

// Entry is one ranked inviter.
type Entry struct {
	InviterID int64
	Username  string
	FirstName string
	JoinCount int64
}

// DisplayName prefers the handle, then the first name, then the id.
func (en Entry) DisplayName() string {
	switch {
	case en.Username != "":
		return "@" + en.Username
	case en.FirstName != "":
		return en.FirstName
	default:
		return "id " + strconv.FormatInt(en.InviterID, 10)
	}
}

// TopInviters ranks the group's inviters by attributed joins, most first.
// Equal counts are ordered by earliest first join, then by inviter id.
// A limit of zero or less yields no entries.
func (e *Engine) TopInviters(ctx context.Context, groupID int64, limit int) ([]Entry, error) {
	if e.store == nil {
		return nil, ErrStoreUnavailable
	}
	if limit <= 0 {
		return []Entry{}, nil
	}

	rows, err := e.store.TopInviters(ctx, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			InviterID: row.InviterID,
			Username:  row.Username,
			FirstName: row.FirstName,
			JoinCount: row.JoinCount,
		})
	}
	return entries, nil
}

// CountForInviter returns how many joins are attributed to the inviter.
func (e *Engine) CountForInviter(ctx context.Context, groupID, inviterID int64) (int64, error) {
	if e.store == nil {
		return 0, ErrStoreUnavailable
	}
	count, err := e.store.CountJoins(ctx, groupID, inviterID)
	if err != nil {
		return 0, fmt.Errorf("failed to count joins: %w", err)
	}
	return count, nil
}
