package draftstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"folioBuilder/internal/database"
	"folioBuilder/internal/portfolio"
)

// GormStore 把草稿保存在 draft_records 表中，每个键一行。
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var record database.DraftRecord
	if err := s.db.WithContext(ctx).Where("draft_key = ?", key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, portfolio.ErrNotFound
		}
		return nil, fmt.Errorf("query draft %q: %w", key, err)
	}
	return []byte(record.Content), nil
}

// Put 以键为冲突列做 upsert。
func (s *GormStore) Put(ctx context.Context, key string, value []byte) error {
	record := database.DraftRecord{Key: key, Content: datatypes.JSON(value)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "draft_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at", "deleted_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("upsert draft %q: %w", key, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	res := s.db.WithContext(ctx).Unscoped().Where("draft_key = ?", key).Delete(&database.DraftRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete draft %q: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return portfolio.ErrNotFound
	}
	return nil
}
