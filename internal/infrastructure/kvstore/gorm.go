package kvstore

import (
	"context"
	"errors"
	"time"

	"rics-valuation/internal/infrastructure/database"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one row of the kv_entries table.
type Entry struct {
	Key       string         `gorm:"column:entry_key;primaryKey;size:255"`
	Value     datatypes.JSON `gorm:"column:value"`
	ExpiresAt *time.Time     `gorm:"column:expires_at;index"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (Entry) TableName() string { return "kv_entries" }

// Gorm stores entries in a SQL table (sqlite or postgres). The quota applies
// per value.
type Gorm struct {
	DB            *gorm.DB
	MaxValueBytes int
	Now           func() time.Time
}

// NewGorm migrates the kv_entries table and returns the store.
func NewGorm(db *gorm.DB, maxValueBytes int) (*Gorm, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Gorm{DB: db, MaxValueBytes: maxValueBytes, Now: time.Now}, nil
}

func (g *Gorm) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	err := g.DB.WithContext(ctx).Where("entry_key = ?", key).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if e.ExpiresAt != nil && !g.Now().Before(*e.ExpiresAt) {
		_ = g.Delete(ctx, key)
		return nil, ErrNotFound
	}
	return []byte(e.Value), nil
}

func (g *Gorm) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if g.MaxValueBytes > 0 && len(value) > g.MaxValueBytes {
		return ErrQuotaExceeded
	}
	now := g.Now()
	e := Entry{Key: key, Value: datatypes.JSON(value), UpdatedAt: now}
	if ttl > 0 {
		exp := now.Add(ttl)
		e.ExpiresAt = &exp
	}
	return g.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&e).Error
}

func (g *Gorm) Delete(ctx context.Context, key string) error {
	return g.DB.WithContext(ctx).Where("entry_key = ?", key).Delete(&Entry{}).Error
}

func (g *Gorm) Ping(context.Context) error {
	return database.Ping(g.DB)
}
