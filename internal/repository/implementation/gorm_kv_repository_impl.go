package implementation

import (
	"context"
	"errors"

	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/repository/contract"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormKeyValueRepositoryImpl struct {
	db *gorm.DB
}

// NewGormKeyValueRepository migrates the kv_entries table before returning.
func NewGormKeyValueRepository(db *gorm.DB) (contract.IKeyValueRepository, error) {
	if err := db.AutoMigrate(&model.KVEntry{}); err != nil {
		return nil, err
	}
	return &GormKeyValueRepositoryImpl{db: db}, nil
}

func (r *GormKeyValueRepositoryImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry model.KVEntry
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(entry.Value), true, nil
}

func (r *GormKeyValueRepositoryImpl) Set(ctx context.Context, key string, value []byte) error {
	entry := model.KVEntry{Key: key, Value: datatypes.JSON(value)}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
}

func (r *GormKeyValueRepositoryImpl) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&model.KVEntry{}).Error
}
