package analytics

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkpress/inkpress/models"
)

// newTestService opens a throwaway sqlite database with the real schema,
// including the unique indexes the dedup gate relies on.
func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "analytics.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Article{},
		&models.ViewEvent{},
		&models.LikeEvent{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return NewService(db), db
}

var slugSeq atomic.Int64

func createArticle(t *testing.T, db *gorm.DB, status string, publishedAt time.Time) models.Article {
	t.Helper()

	article := models.Article{
		UserID:  1,
		Title:   "title",
		Slug:    fmt.Sprintf("slug-%d", slugSeq.Add(1)),
		Content: "content",
		Status:  status,
	}
	if status == models.StatusPublished {
		article.PublishedAt = &publishedAt
	}
	if err := db.Create(&article).Error; err != nil {
		t.Fatalf("create article: %v", err)
	}
	return article
}

func reloadArticle(t *testing.T, db *gorm.DB, id uint) models.Article {
	t.Helper()

	var article models.Article
	if err := db.First(&article, id).Error; err != nil {
		t.Fatalf("reload article %d: %v", id, err)
	}
	return article
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()

	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

// noon on a fixed date, in the zone the service buckets days in.
var testNow = time.Date(2026, time.August, 10, 12, 30, 0, 0, time.Local)
