package models

import (
	"time"
)

// News represents a public announcement written by an admin
type News struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255" json:"title" validate:"required,min=3,max=255"`
	Content   string    `gorm:"type:text" json:"content" validate:"required"`
	Slug      string    `gorm:"uniqueIndex;size:255" json:"slug" validate:"required,min=3,max=255"`
	Published bool      `gorm:"not null" json:"published"`
	AuthorID  *uint     `gorm:"index" json:"author_id"`
	Author    *Admin    `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"author,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the News model
func (News) TableName() string {
	return "news"
}
