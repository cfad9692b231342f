package models

import (
	"time"

	"github.com/lib/pq"
)

// CachedProduct mirrors an upstream catalog entry. Rows are refreshed from
// the florist API; the storefront never writes catalog truth of its own.
type CachedProduct struct {
	ID           string         `gorm:"column:id;primaryKey"`
	Name         string         `gorm:"column:name;not null"`
	Description  string         `gorm:"column:description"`
	PriceCents   int64          `gorm:"column:price_cents;not null"`
	Image        string         `gorm:"column:image"`
	CategoryKind string         `gorm:"column:category_kind;not null;default:'named'"`
	CategoryID   string         `gorm:"column:category_id"`
	CategoryName string         `gorm:"column:category_name"`
	InStock      bool           `gorm:"column:in_stock;not null;default:true"`
	IsBouquet    bool           `gorm:"column:is_bouquet;not null;default:false"`
	Tags         pq.StringArray `gorm:"column:tags;type:text[]"`
	FetchedAt    time.Time      `gorm:"column:fetched_at;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (CachedProduct) TableName() string {
	return "cached_products"
}
