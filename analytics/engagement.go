package analytics

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkpress/inkpress/models"
)

// Service implements the engagement write path (view/like deduplication and
// counter maintenance) and the dashboard read path. All writes for one
// operation run in a single transaction scoped to one article, so the
// denormalized counters never diverge from the event tables.
type Service struct {
	db *gorm.DB
}

// NewService creates a Service on top of an initialized gorm DB.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ViewResult reports whether a view was counted and the counter afterwards.
type ViewResult struct {
	Counted   bool  `json:"counted"`
	ViewCount int64 `json:"view_count"`
}

// LikeResult reports the like state after a toggle and the counter afterwards.
type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

// RecordView counts at most one view per article, identity and calendar day.
// A repeat view on the same day is a successful no-op with Counted=false.
func (s *Service) RecordView(articleID uint, identity, userAgent string, now time.Time) (ViewResult, error) {
	if articleID == 0 || strings.TrimSpace(identity) == "" {
		return ViewResult{}, ErrInvalidArgument
	}

	day := startOfDay(now)
	var res ViewResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		article, err := lockArticle(tx, articleID)
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.ViewEvent{}).
			Where("article_id = ? AND identity = ? AND view_date = ?", articleID, identity, day).
			Count(&existing).Error; err != nil {
			return storageErr("check view event", err)
		}
		if existing > 0 {
			res = ViewResult{Counted: false, ViewCount: article.ViewCount}
			return nil
		}

		event := models.ViewEvent{
			ArticleID:  articleID,
			Identity:   identity,
			ViewDate:   day,
			UserAgent:  userAgent,
			OccurredAt: now,
		}
		if err := tx.Create(&event).Error; err != nil {
			// A concurrent request for the same (article, identity, day) won
			// the race; fold into "already counted" rather than fail.
			if isUniqueViolation(err) {
				res = ViewResult{Counted: false, ViewCount: article.ViewCount}
				return nil
			}
			return storageErr("insert view event", err)
		}

		if err := applyDelta(tx, articleID, "view_count", +1); err != nil {
			return err
		}
		res = ViewResult{Counted: true, ViewCount: article.ViewCount + 1}
		return nil
	})
	if err != nil {
		return ViewResult{}, err
	}
	return res, nil
}

// ToggleLike flips the like state for (article, identity): it inserts a like
// event and increments the counter, or deletes the existing event and
// decrements, atomically either way.
func (s *Service) ToggleLike(articleID uint, identity, userAgent string, now time.Time) (LikeResult, error) {
	if articleID == 0 || strings.TrimSpace(identity) == "" {
		return LikeResult{}, ErrInvalidArgument
	}

	var res LikeResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		article, err := lockArticle(tx, articleID)
		if err != nil {
			return err
		}

		var existing models.LikeEvent
		err = tx.Where("article_id = ? AND identity = ?", articleID, identity).First(&existing).Error
		switch {
		case err == nil:
			// Unlike: remove the event and decrement in the same transaction.
			if err := tx.Delete(&models.LikeEvent{}, existing.ID).Error; err != nil {
				return storageErr("delete like event", err)
			}
			if err := applyDelta(tx, articleID, "like_count", -1); err != nil {
				return err
			}
			res = LikeResult{Liked: false, LikeCount: article.LikeCount - 1}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			event := models.LikeEvent{
				ArticleID:  articleID,
				Identity:   identity,
				UserAgent:  userAgent,
				OccurredAt: now,
			}
			if err := tx.Create(&event).Error; err != nil {
				if isUniqueViolation(err) {
					// Lost an insert race; the article is liked now either way.
					res = LikeResult{Liked: true, LikeCount: article.LikeCount}
					return nil
				}
				return storageErr("insert like event", err)
			}
			if err := applyDelta(tx, articleID, "like_count", +1); err != nil {
				return err
			}
			res = LikeResult{Liked: true, LikeCount: article.LikeCount + 1}
			return nil
		default:
			return storageErr("check like event", err)
		}
	})
	if err != nil {
		return LikeResult{}, err
	}
	return res, nil
}

// lockArticle loads the article under a row lock so concurrent counter
// updates for the same article serialize. SQLite rejects FOR UPDATE and
// serializes writers on its own, so the clause is skipped there. Draft and
// archived articles have no public URL, so engagement against them reports
// not-found.
func lockArticle(tx *gorm.DB, articleID uint) (*models.Article, error) {
	if tx.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var article models.Article
	err := tx.First(&article, articleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, storageErr("load article", err)
	}
	if article.Status != models.StatusPublished {
		return nil, ErrArticleNotFound
	}
	return &article, nil
}

// applyDelta adjusts a denormalized counter column. Must only run inside the
// transaction that inserted or deleted the corresponding event.
func applyDelta(tx *gorm.DB, articleID uint, column string, delta int) error {
	err := tx.Model(&models.Article{}).Where("id = ?", articleID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
	if err != nil {
		return storageErr("update "+column, err)
	}
	return nil
}

// isUniqueViolation recognizes duplicate-key rejections across drivers; the
// MySQL message is matched as a fallback when error translation is off.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
