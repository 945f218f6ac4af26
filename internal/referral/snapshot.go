package referral

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"spyton-bot/internal/models"
)

// SnapshotVersion is the schema version written by ExportSnapshot.
const SnapshotVersion = 1

var (
	// ErrInvalidSnapshot is returned when a document fails shape checks. It
	// is raised before any write.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrImportRolledBack wraps any failure inside the import transaction.
	ErrImportRolledBack = errors.New("import rolled back")
)

// Snapshot is the portable backup document.
//
// Optional fields and their defaults on import:
//   - version: 1 when missing
//   - username, first_name: empty
//   - created_at: the time of the import
type Snapshot struct {
	Version    int              `json:"version"`
	ID         string           `json:"id,omitempty"`
	ExportedAt time.Time        `json:"exported_at"`
	Users      []SnapshotUser   `json:"users"`
	Invites    []SnapshotInvite `json:"invites"`
	Joins      []SnapshotJoin   `json:"joins"`
}

type SnapshotUser struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username,omitempty"`
	FirstName string     `json:"first_name,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type SnapshotInvite struct {
	InviterID int64      `json:"inviter_id"`
	GroupID   int64      `json:"group_id"`
	Link      string     `json:"link"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type SnapshotJoin struct {
	GroupID      int64      `json:"group_id"`
	InviterID    int64      `json:"inviter_id"`
	JoinedUserID int64      `json:"joined_user_id"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// Limits caps how many rows of each kind an export reads. Zero or less
// means no cap.
type Limits struct {
	Users   int
	Invites int
	Joins   int
}

// ImportResult counts what a committed import wrote.
type ImportResult struct {
	Users        int
	Invites      int
	JoinsAdded   int
	JoinsSkipped int
}

// ExportSnapshot reads users (oldest first), invites and joins up to the
// given limits. Reads are not isolated from concurrent writes.
func (e *Engine) ExportSnapshot(ctx context.Context, limits Limits) (*Snapshot, error) {
	if e.store == nil {
		return nil, ErrStoreUnavailable
	}

	users, err := e.store.ListUsers(ctx, limits.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	invites, err := e.store.ListInvites(ctx, limits.Invites)
	if err != nil {
		return nil, fmt.Errorf("failed to read invites: %w", err)
	}
	joins, err := e.store.ListJoins(ctx, limits.Joins)
	if err != nil {
		return nil, fmt.Errorf("failed to read joins: %w", err)
	}

	snap := &Snapshot{
		Version:    SnapshotVersion,
		ID:         uuid.New().String(),
		ExportedAt: time.Now().UTC(),
		Users:      make([]SnapshotUser, 0, len(users)),
		Invites:    make([]SnapshotInvite, 0, len(invites)),
		Joins:      make([]SnapshotJoin, 0, len(joins)),
	}
	for _, u := range users {
		snap.Users = append(snap.Users, SnapshotUser{
			ID:        u.ID,
			Username:  u.Username,
			FirstName: u.FirstName,
			CreatedAt: timePtr(u.CreatedAt),
		})
	}
	for _, inv := range invites {
		snap.Invites = append(snap.Invites, SnapshotInvite{
			InviterID: inv.InviterID,
			GroupID:   inv.GroupID,
			Link:      inv.Link,
			CreatedAt: timePtr(inv.CreatedAt),
		})
	}
	for _, j := range joins {
		snap.Joins = append(snap.Joins, SnapshotJoin{
			GroupID:      j.GroupID,
			InviterID:    j.InviterID,
			JoinedUserID: j.JoinedUserID,
			CreatedAt:    timePtr(j.CreatedAt),
		})
	}

	log.Printf("Exported snapshot %s: %d users, %d invites, %d joins", snap.ID, len(snap.Users), len(snap.Invites), len(snap.Joins))
	return snap, nil
}

// ImportSnapshot restores a snapshot in one transaction: users, then
// invites, then joins. Users and invites are upserted on their natural
// keys; joins already recorded are left untouched. On any failure nothing
// is written and the error wraps ErrImportRolledBack.
func (e *Engine) ImportSnapshot(ctx context.Context, snap *Snapshot) (ImportResult, error) {
	if e.store == nil {
		return ImportResult{}, ErrStoreUnavailable
	}
	if err := snap.Validate(); err != nil {
		return ImportResult{}, err
	}

	now := time.Now().UTC()
	users := make([]models.User, 0, len(snap.Users))
	for _, u := range snap.Users {
		users = append(users, models.User{
			ID:        u.ID,
			Username:  u.Username,
			FirstName: u.FirstName,
			CreatedAt: timeOr(u.CreatedAt, now),
		})
	}
	invites := make([]models.InviteLink, 0, len(snap.Invites))
	for _, inv := range snap.Invites {
		invites = append(invites, models.InviteLink{
			InviterID: inv.InviterID,
			GroupID:   inv.GroupID,
			Link:      inv.Link,
			CreatedAt: timeOr(inv.CreatedAt, now),
		})
	}
	joins := make([]models.JoinRecord, 0, len(snap.Joins))
	for _, j := range snap.Joins {
		joins = append(joins, models.JoinRecord{
			GroupID:      j.GroupID,
			InviterID:    j.InviterID,
			JoinedUserID: j.JoinedUserID,
			CreatedAt:    timeOr(j.CreatedAt, now),
		})
	}

	stats, err := e.store.Restore(ctx, users, invites, joins)
	if err != nil {
		log.Printf("Snapshot import rolled back: %v", err)
		return ImportResult{}, fmt.Errorf("%w: %w", ErrImportRolledBack, err)
	}

	log.Printf("Imported snapshot %s: %d users, %d invites, %d joins added, %d joins skipped",
		snap.ID, stats.Users, stats.Invites, stats.JoinsAdded, stats.JoinsSkipped)
	return ImportResult{
		Users:        stats.Users,
		Invites:      stats.Invites,
		JoinsAdded:   stats.JoinsAdded,
		JoinsSkipped: stats.JoinsSkipped,
	}, nil
}

// ParseSnapshot decodes and validates a snapshot document.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if snap.Version == 0 {
		snap.Version = 1
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Marshal encodes the snapshot as indented JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Validate checks the document shape. Referential checks are left to the
// store's constraints.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: empty document", ErrInvalidSnapshot)
	}
	if s.Version < 0 || s.Version > SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, s.Version)
	}
	for i, u := range s.Users {
		if u.ID == 0 {
			return fmt.Errorf("%w: users[%d]: missing id", ErrInvalidSnapshot, i)
		}
	}
	for i, inv := range s.Invites {
		if inv.InviterID == 0 || inv.GroupID == 0 {
			return fmt.Errorf("%w: invites[%d]: missing inviter_id or group_id", ErrInvalidSnapshot, i)
		}
		if inv.Link == "" {
			return fmt.Errorf("%w: invites[%d]: missing link", ErrInvalidSnapshot, i)
		}
	}
	for i, j := range s.Joins {
		if j.GroupID == 0 || j.InviterID == 0 || j.JoinedUserID == 0 {
			return fmt.Errorf("%w: joins[%d]: missing group_id, inviter_id or joined_user_id", ErrInvalidSnapshot, i)
		}
		if j.InviterID == j.JoinedUserID {
			return fmt.Errorf("%w: joins[%d]: self-referral", ErrInvalidSnapshot, i)
		}
	}
	return nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func timeOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback
	}
	return *t
}
