package models

import "time"

// Article statuses. Only published articles are publicly visible and
// eligible for engagement events.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Article represents a blog article. ViewCount and LikeCount are denormalized
// aggregates over the view_events/like_events tables; after creation they are
// written only inside the engagement transactions.
type Article struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	CategoryID  *uint      `gorm:"index" json:"category_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Summary     string     `gorm:"size:512" json:"summary"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	Status      string     `gorm:"size:16;index;default:'draft'" json:"status"`
	ViewCount   int64      `gorm:"not null;default:0" json:"view_count"`
	LikeCount   int64      `gorm:"not null;default:0" json:"like_count"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	User        User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Category    *Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
}
