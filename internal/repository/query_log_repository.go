package repository

import (
	"fmt"

	"gorm.io/gorm"

	"pdfquery/internal/model"
)

type QueryLogRepository struct {
	db *gorm.DB
}

func NewQueryLogRepository(db *gorm.DB) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

func (r *QueryLogRepository) Create(entry *model.QueryLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("create query log failed: %w", err)
	}
	return nil
}

func (r *QueryLogRepository) ListRecentByUserID(userID uint, limit int) ([]model.QueryLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []model.QueryLog
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list recent query logs failed: %w", err)
	}
	return list, nil
}
