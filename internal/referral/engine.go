// Package referral attributes channel joins to the inviters whose links were
// used, ranks inviters, and exports or restores its own state.
//
// The engine keeps no state of its own. Every call goes to the Store, whose
// unique keys on (inviter, group) and (group, joined user) make concurrent
// calls safe.
package referral

import (
	"context"
	"errors"

	"spyton-bot/internal/models"
	"spyton-bot/internal/repository"
)

var (
	// ErrPermissionDenied means the bot may not create invite links in the
	// target group. Granting the bot the invite permission fixes it.
	ErrPermissionDenied = errors.New("bot lacks invite permission in the group")
	// ErrStoreUnavailable is returned when the engine has no usable store.
	ErrStoreUnavailable = errors.New("referral store unavailable")
)

// Store is the persistence the engine drives. *repository.Repository
// implements it.
type Store interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetInvite(ctx context.Context, inviterID, groupID int64) (*models.InviteLink, error)
	CreateInvite(ctx context.Context, invite *models.InviteLink) (bool, error)
	FindInviterByLink(ctx context.Context, groupID int64, link string) (int64, error)
	InsertJoin(ctx context.Context, join *models.JoinRecord) (bool, error)
	TopInviters(ctx context.Context, groupID int64, limit int) ([]repository.InviterCount, error)
	CountJoins(ctx context.Context, groupID, inviterID int64) (int64, error)
	ListUsers(ctx context.Context, max int) ([]models.User, error)
	ListInvites(ctx context.Context, max int) ([]models.InviteLink, error)
	ListJoins(ctx context.Context, max int) ([]models.JoinRecord, error)
	Restore(ctx context.Context, users []models.User, invites []models.InviteLink, joins []models.JoinRecord) (repository.RestoreStats, error)
}

// LinkIssuer asks the chat platform for a fresh invite link to a group.
// Links must not require admin approval of join requests. Implementations
// return an error wrapping ErrPermissionDenied when the bot lacks rights.
type LinkIssuer interface {
	CreateInviteLink(ctx context.Context, groupID int64, name string) (string, error)
}

type Engine struct {
	store  Store
	issuer LinkIssuer
}

func NewEngine(store Store, issuer LinkIssuer) *Engine {
	return &Engine{
		store:  store,
		issuer: issuer,
	}
}

// Touch records an interaction by a user, creating it on first sight and
// refreshing its handle and name afterwards.
func (e *Engine) Touch(ctx context.Context, user models.User) error {
	if e.store == nil {
		return ErrStoreUnavailable
	}
	return e.store.UpsertUser(ctx, &user)
}
