package repository

import (
	"context"
	"errors"
	"fmt"

	"spyton-bot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InviterCount is one aggregated leaderboard row.
type InviterCount struct {
	InviterID int64
	Username  string
	FirstName string
	JoinCount int64
}

// Ping checks that the underlying connection is usable.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// UpsertUser inserts the user or refreshes its handle and name.
func (r *Repository) UpsertUser(ctx context.Context, user *models.User) error {
	return upsertUser(r.db.WithContext(ctx), user)
}

func upsertUser(db *gorm.DB, user *models.User) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "updated_at"}),
	}).Create(user).Error
}

// GetInvite returns the invite link of an inviter for a group.
func (r *Repository) GetInvite(ctx context.Context, inviterID, groupID int64) (*models.InviteLink, error) {
	var invite models.InviteLink
	err := r.db.WithContext(ctx).
		Where("inviter_id = ? AND group_id = ?", inviterID, groupID).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// CreateInvite stores a new invite link. It reports false when a link for
// the same (inviter, group) already exists; the stored row is left as is.
func (r *Repository) CreateInvite(ctx context.Context, invite *models.InviteLink) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "inviter_id"}, {Name: "group_id"}},
		DoNothing: true,
	}).Create(invite)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SaveInvite inserts the invite link or replaces the link of an existing one.
func (r *Repository) SaveInvite(ctx context.Context, invite *models.InviteLink) error {
	return saveInvite(r.db.WithContext(ctx), invite)
}

func saveInvite(db *gorm.DB, invite *models.InviteLink) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "inviter_id"}, {Name: "group_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"link", "created_at"}),
	}).Create(invite).Error
}

// FindInviterByLink resolves an invite link used in a group to its inviter.
func (r *Repository) FindInviterByLink(ctx context.Context, groupID int64, link string) (int64, error) {
	var invite models.InviteLink
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND link = ?", groupID, link).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return invite.InviterID, nil
}

// InsertJoin records a join unless the user is already attributed in the
// group. It reports whether a new row was written.
func (r *Repository) InsertJoin(ctx context.Context, join *models.JoinRecord) (bool, error) {
	return insertJoin(r.db.WithContext(ctx), join)
}

func insertJoin(db *gorm.DB, join *models.JoinRecord) (bool, error) {
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "joined_user_id"}},
		DoNothing: true,
	}).Create(join)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// TopInviters ranks inviters of a group by attributed joins. Ties go to
// the inviter whose first join is older, then to the lower id.
func (r *Repository) TopInviters(ctx context.Context, groupID int64, limit int) ([]InviterCount, error) {
	var rows []InviterCount
	err := r.db.WithContext(ctx).
		Table("joins AS j").
		Select("j.inviter_id AS inviter_id, COALESCE(u.username, '') AS username, COALESCE(u.first_name, '') AS first_name, COUNT(*) AS join_count").
		Joins("LEFT JOIN users u ON u.id = j.inviter_id").
		Where("j.group_id = ?", groupID).
		Group("j.inviter_id, u.username, u.first_name").
		Order("join_count DESC, MIN(j.created_at) ASC, j.inviter_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountJoins counts the joins attributed to one inviter in a group.
func (r *Repository) CountJoins(ctx context.Context, groupID, inviterID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.JoinRecord{}).
		Where("group_id = ? AND inviter_id = ?", groupID, inviterID).
		Count(&count).Error
	return count, err
}

func (r *Repository) ListUsers(ctx context.Context, max int) ([]models.User, error) {
	var users []models.User
	err := bounded(r.db.WithContext(ctx), max).Order("created_at ASC, id ASC").Find(&users).Error
	return users, err
}

func (r *Repository) ListInvites(ctx context.Context, max int) ([]models.InviteLink, error) {
	var invites []models.InviteLink
	err := bounded(r.db.WithContext(ctx), max).Order("inviter_id ASC, group_id ASC").Find(&invites).Error
	return invites, err
}

func (r *Repository) ListJoins(ctx context.Context, max int) ([]models.JoinRecord, error) {
	var joins []models.JoinRecord
	err := bounded(r.db.WithContext(ctx), max).Order("group_id ASC, joined_user_id ASC").Find(&joins).Error
	return joins, err
}

func bounded(db *gorm.DB, max int) *gorm.DB {
	if max > 0 {
		return db.Limit(max)
	}
	return db
}

// RestoreStats counts what a restore wrote.
type RestoreStats struct {
	Users        int
	Invites      int
	JoinsAdded   int
	JoinsSkipped int
}

// Restore writes users, then invites, then joins in one transaction.
// Users and invites are upserted; joins never overwrite an existing
// attribution. Any failure rolls the whole restore back.
func (r *Repository) Restore(ctx context.Context, users []models.User, invites []models.InviteLink, joins []models.JoinRecord) (RestoreStats, error) {
	var stats RestoreStats
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range users {
			if err := upsertUser(tx, &users[i]); err != nil {
				return fmt.Errorf("user %d: %w", users[i].ID, err)
			}
			stats.Users++
		}

		for i := range invites {
			if err := saveInvite(tx, &invites[i]); err != nil {
				return fmt.Errorf("invite %d/%d: %w", invites[i].InviterID, invites[i].GroupID, err)
			}
			stats.Invites++
		}

		for i := range joins {
			inserted, err := insertJoin(tx, &joins[i])
			if err != nil {
				return fmt.Errorf("join %d/%d: %w", joins[i].GroupID, joins[i].JoinedUserID, err)
			}
			if inserted {
				stats.JoinsAdded++
			} else {
				stats.JoinsSkipped++
			}
		}
		return nil
	})
	if err != nil {
		return RestoreStats{}, err
	}
	return stats, nil
}
