package referral

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"spyton-bot/internal/models"
	"spyton-bot/internal/repository"
)

// GetOrCreateInviteLink returns the inviter's link for the group, asking the
// issuer for a new one only when none is stored yet.
func (e *Engine) GetOrCreateInviteLink(ctx context.Context, inviter models.User, groupID int64) (string, error) {
	if e.store == nil {
		return "", ErrStoreUnavailable
	}

	if err := e.store.UpsertUser(ctx, &inviter); err != nil {
		return "", fmt.Errorf("failed to save inviter %d: %w", inviter.ID, err)
	}

	existing, err := e.store.GetInvite(ctx, inviter.ID, groupID)
	if err == nil {
		return existing.Link, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("failed to look up invite link: %w", err)
	}

	if e.issuer == nil {
		return "", errors.New("no invite link issuer configured")
	}
	link, err := e.issuer.CreateInviteLink(ctx, groupID, linkName(inviter.ID))
	if err != nil {
		return "", err
	}

	invite := models.InviteLink{
		InviterID: inviter.ID,
		GroupID:   groupID,
		Link:      link,
	}
	created, err := e.store.CreateInvite(ctx, &invite)
	if err != nil {
		return "", fmt.Errorf("failed to save invite link: %w", err)
	}
	if created {
		log.Printf("Issued invite link for user %d in group %d", inviter.ID, groupID)
		return link, nil
	}

	// A concurrent request stored its link first; that one wins.
	winner, err := e.store.GetInvite(ctx, inviter.ID, groupID)
	if err != nil {
		return "", fmt.Errorf("failed to reload invite link: %w", err)
	}
	return winner.Link, nil
}

// linkName labels the link in the group's admin panel. Telegram caps names
// at 32 characters.
func linkName(inviterID int64) string {
	name := "ref_" + strconv.FormatInt(inviterID, 10)
	if len(name) > 32 {
		name = name[:32]
	}
	return name
}
