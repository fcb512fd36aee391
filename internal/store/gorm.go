package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xelth-com/centerhub/internal/models"
	"gorm.io/gorm"
)

// GormStore implements the center, activity and session stores on postgres.
// The *gorm.DB must be opened with TranslateError so duplicate keys surface as
// gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// NewGorm builds a Store whose repositories all share db
func NewGorm(db *gorm.DB) *Store {
	gs := NewGormStore(db)
	return &Store{
		Centers:     gs,
		Activities:  gs,
		Sessions:    gs,
		Technicians: NewGormRecords[models.Technician](db),
		Customers:   NewGormRecords[models.Customer](db),
		Inventory:   NewGormInventory(db),
		Sales:       NewGormRecords[models.Sale](db),
		Maintenance: NewGormRecords[models.MaintenanceRequest](db),
	}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- centers ---

func (s *GormStore) ListCenters(ctx context.Context) ([]models.Center, error) {
	var centers []models.Center
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&centers).Error; err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	return centers, nil
}

func (s *GormStore) GetCenter(ctx context.Context, id string) (*models.Center, error) {
	var c models.Center
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *GormStore) GetCenterByEmail(ctx context.Context, email string) (*models.Center, error) {
	var c models.Center
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *GormStore) CreateCenter(ctx context.Context, c *models.Center) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *GormStore) UpdateCenter(ctx context.Context, c *models.Center) error {
	res := s.db.WithContext(ctx).Model(&models.Center{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"name":          c.Name,
		"email":         c.Email,
		"password_hash": c.PasswordHash,
		"manager_name":  c.ManagerName,
		"address":       c.Address,
		"phone":         c.Phone,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteCenter(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Center{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- activities ---

func (s *GormStore) AppendLocal(ctx context.Context, rec *models.ActivityRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *GormStore) AppendGlobal(ctx context.Context, rec *models.GlobalActivity) error {
	err := s.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: global copy of %s", ErrDuplicate, rec.LocalID)
	}
	return err
}

func applyActivityQuery(tx *gorm.DB, q ActivityQuery) *gorm.DB {
	if q.From != nil {
		tx = tx.Where("timestamp >= ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("timestamp <= ?", *q.To)
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	tx = tx.Order("timestamp DESC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx
}

func (s *GormStore) ListLocal(ctx context.Context, centerID string, q ActivityQuery) ([]models.ActivityRecord, error) {
	var out []models.ActivityRecord
	tx := s.db.WithContext(ctx).Where("center_id = ?", centerID)
	if err := applyActivityQuery(tx, q).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list activities for %s: %w", centerID, err)
	}
	return out, nil
}

func (s *GormStore) ListGlobal(ctx context.Context, q ActivityQuery) ([]models.GlobalActivity, error) {
	var out []models.GlobalActivity
	tx := s.db.WithContext(ctx)
	if q.CenterID != "" {
		tx = tx.Where("center_id = ?", q.CenterID)
	}
	if err := applyActivityQuery(tx, q).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list global activities: %w", err)
	}
	return out, nil
}

func (s *GormStore) CountLocal(ctx context.Context, centerID string, from time.Time, to *time.Time) (int64, error) {
	var n int64
	tx := s.db.WithContext(ctx).Model(&models.ActivityRecord{}).
		Where("center_id = ? AND timestamp >= ?", centerID, from)
	if to != nil {
		tx = tx.Where("timestamp <= ?", *to)
	}
	if err := tx.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *GormStore) HasLocal(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.ActivityRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *GormStore) LocalWithoutMirror(ctx context.Context, limit int) ([]models.ActivityRecord, error) {
	var out []models.ActivityRecord
	err := s.db.WithContext(ctx).
		Table("center_activities AS ca").
		Select("ca.*").
		Joins("LEFT JOIN global_activities ga ON ga.local_id = ca.id").
		Where("ga.id IS NULL").
		Order("ca.timestamp ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("find unmirrored activities: %w", err)
	}
	return out, nil
}

// --- sessions ---

func (s *GormStore) ActiveSession(ctx context.Context, centerID string) (*models.CenterSession, error) {
	var sessions []models.CenterSession
	err := s.db.WithContext(ctx).
		Where("center_id = ? AND is_active = ?", centerID, true).
		Order("session_start DESC").
		Limit(1).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func (s *GormStore) CreateSession(ctx context.Context, sess *models.CenterSession) error {
	err := s.db.WithContext(ctx).Create(sess).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrActiveSessionExists
	}
	return err
}

// CloseSession ends an open session with a conditional update, so two racing closes
// cannot both succeed.
func (s *GormStore) CloseSession(ctx context.Context, centerID, id string, end time.Time, endedBy string) (*models.CenterSession, error) {
	res := s.db.WithContext(ctx).
		Model(&models.CenterSession{}).
		Where("id = ? AND center_id = ? AND is_active = ?", id, centerID, true).
		Updates(map[string]interface{}{
			"session_end": end,
			"is_active":   false,
			"ended_by":    endedBy,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	sess, err := s.GetSession(ctx, centerID, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return sess, ErrSessionNotOpen
	}
	return sess, nil
}

func (s *GormStore) GetSession(ctx context.Context, centerID, id string) (*models.CenterSession, error) {
	var sess models.CenterSession
	if err := s.db.WithContext(ctx).Where("id = ? AND center_id = ?", id, centerID).First(&sess).Error; err != nil {
		return nil, translate(err)
	}
	return &sess, nil
}

func (s *GormStore) ListSessions(ctx context.Context, centerID string, limit int) ([]models.CenterSession, error) {
	var out []models.CenterSession
	tx := s.db.WithContext(ctx).Where("center_id = ?", centerID).Order("session_start DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ListActiveSessions(ctx context.Context) ([]models.CenterSession, error) {
	var out []models.CenterSession
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GormRecords is the postgres implementation of Records
type GormRecords[T models.CenterScoped] struct {
	db *gorm.DB
}

// NewGormRecords creates a repository for T
func NewGormRecords[T models.CenterScoped](db *gorm.DB) *GormRecords[T] {
	return &GormRecords[T]{db: db}
}

func (r *GormRecords[T]) List(ctx context.Context, centerID string) ([]T, error) {
	var out []T
	tx := r.db.WithContext(ctx)
	if centerID != "" {
		tx = tx.Where("center_id = ?", centerID)
	}
	if err := tx.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRecords[T]) Get(ctx context.Context, centerID, id string) (T, error) {
	var rec T
	err := r.db.WithContext(ctx).Where("id = ? AND center_id = ?", id, centerID).First(&rec).Error
	return rec, translate(err)
}

func (r *GormRecords[T]) Create(ctx context.Context, rec T) error {
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *GormRecords[T]) Update(ctx context.Context, rec T) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND center_id = ?", rec.GetID(), rec.GetCenterID()).
		Select("*").Omit("created_at").
		Updates(&rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRecords[T]) Delete(ctx context.Context, centerID, id string) error {
	var zero T
	res := r.db.WithContext(ctx).Where("id = ? AND center_id = ?", id, centerID).Delete(&zero)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GormInventory is the postgres inventory repository
type GormInventory struct {
	*GormRecords[models.InventoryItem]
}

// NewGormInventory creates the inventory repository
func NewGormInventory(db *gorm.DB) *GormInventory {
	return &GormInventory{NewGormRecords[models.InventoryItem](db)}
}

// AdjustQuantity changes the stock with a single conditional update, so
// concurrent sales cannot take the same units.
func (r *GormInventory) AdjustQuantity(ctx context.Context, centerID, id string, delta int) (models.InventoryItem, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND center_id = ? AND quantity + ? >= 0", id, centerID, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return models.InventoryItem{}, res.Error
	}

	item, err := r.Get(ctx, centerID, id)
	if err != nil {
		return models.InventoryItem{}, err
	}
	if res.RowsAffected == 0 {
		return item, ErrInsufficientStock
	}
	return item, nil
}
