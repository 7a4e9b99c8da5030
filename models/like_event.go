package models

import "time"

// LikeEvent marks that an identity currently likes an article. Liking is a
// toggle: a second like request from the same identity deletes the row. The
// unique index carries no time component.
type LikeEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ArticleID  uint      `gorm:"index;index:idx_like_article_identity,unique;not null" json:"article_id"`
	Identity   string    `gorm:"size:45;index:idx_like_article_identity,unique;not null" json:"identity"`
	UserAgent  string    `gorm:"size:512" json:"user_agent"`
	OccurredAt time.Time `gorm:"index;not null" json:"occurred_at"`
	Article    Article   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
