package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spyton-bot/internal/models"
	"spyton-bot/internal/repository"
)

// Member statuses as reported by the chat platform. A restricted user who
// is still in the chat is reported as StatusMember by the connector.
const (
	StatusCreator       = "creator"
	StatusAdministrator = "administrator"
	StatusMember        = "member"
	StatusRestricted    = "restricted"
	StatusLeft          = "left"
	StatusKicked        = "kicked"
)

// IgnoreReason tells why a membership change produced no join record.
type IgnoreReason string

const (
	ReasonNotAJoin     IgnoreReason = "not-a-join"
	ReasonNoToken      IgnoreReason = "no-token"
	ReasonUnknownToken IgnoreReason = "unknown-token"
	ReasonSelfReferral IgnoreReason = "self-referral"
	ReasonDuplicate    IgnoreReason = "duplicate"
)

// MemberEvent is a membership change in a group.
type MemberEvent struct {
	GroupID    int64
	OldStatus  string
	NewStatus  string
	User       models.User
	InviteLink string
	At         time.Time
}

// Attribution is the outcome of AttributeJoin. When Attributed is false,
// Reason says why the event was ignored.
type Attribution struct {
	Attributed bool
	InviterID  int64
	Reason     IgnoreReason
}

func ignored(reason IgnoreReason) Attribution {
	return Attribution{Reason: reason}
}

// IsJoin reports whether a status change moves a user from outside the group
// to member or above.
func IsJoin(oldStatus, newStatus string) bool {
	wasOut := oldStatus == StatusLeft || oldStatus == StatusKicked
	isIn := newStatus == StatusMember || newStatus == StatusAdministrator || newStatus == StatusCreator
	return wasOut && isIn
}

// AttributeJoin credits a join to the inviter whose link was used. Redelivered
// events, rejoins, foreign links and self-referrals are ignored, not errors.
func (e *Engine) AttributeJoin(ctx context.Context, ev MemberEvent) (Attribution, error) {
	if e.store == nil {
		return Attribution{}, ErrStoreUnavailable
	}

	if !IsJoin(ev.OldStatus, ev.NewStatus) {
		return ignored(ReasonNotAJoin), nil
	}

	if err := e.store.UpsertUser(ctx, &ev.User); err != nil {
		return Attribution{}, fmt.Errorf("failed to save joined user %d: %w", ev.User.ID, err)
	}

	if ev.InviteLink == "" {
		return ignored(ReasonNoToken), nil
	}

	inviterID, err := e.store.FindInviterByLink(ctx, ev.GroupID, ev.InviteLink)
	if errors.Is(err, repository.ErrNotFound) {
		return ignored(ReasonUnknownToken), nil
	}
	if err != nil {
		return Attribution{}, fmt.Errorf("failed to resolve invite link: %w", err)
	}

	if inviterID == ev.User.ID {
		return ignored(ReasonSelfReferral), nil
	}

	join := models.JoinRecord{
		GroupID:      ev.GroupID,
		InviterID:    inviterID,
		JoinedUserID: ev.User.ID,
		CreatedAt:    ev.At,
	}
	inserted, err := e.store.InsertJoin(ctx, &join)
	if err != nil {
		return Attribution{}, fmt.Errorf("failed to record join: %w", err)
	}
	if !inserted {
		return ignored(ReasonDuplicate), nil
	}

	return Attribution{Attributed: true, InviterID: inviterID}, nil
}
