package models

import "time"

// CachedCategory mirrors an upstream category listing.
type CachedCategory struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description"`
	Image       string    `gorm:"column:image"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	FetchedAt   time.Time `gorm:"column:fetched_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CachedCategory) TableName() string {
	return "cached_categories"
}
