package models

import "time"

// ViewEvent is one counted view of an article. Rows are append-only; the
// composite unique index enforces at most one row per article, identity and
// calendar day, so a repeat visit on the same day is rejected by the store
// rather than double-counted.
type ViewEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ArticleID  uint      `gorm:"index;index:idx_view_article_identity_day,unique;not null" json:"article_id"`
	Identity   string    `gorm:"size:45;index:idx_view_article_identity_day,unique;not null" json:"identity"`
	ViewDate   time.Time `gorm:"type:date;index;index:idx_view_article_identity_day,unique;not null" json:"view_date"`
	UserAgent  string    `gorm:"size:512" json:"user_agent"`
	OccurredAt time.Time `gorm:"index;not null" json:"occurred_at"`
	Article    Article   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
