package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/inkpress/inkpress/models"
)

func TestRecordViewOncePerDay(t *testing.T) {
	svc, db := newTestService(t)
	article := createArticle(t, db, models.StatusPublished, testNow)

	res, err := svc.RecordView(article.ID, "1.2.3.4", "test-agent", testNow)
	if err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if !res.Counted || res.ViewCount != 1 {
		t.Fatalf("first view: got counted=%v count=%d, want counted=true count=1", res.Counted, res.ViewCount)
	}

	// Same identity later the same day is a no-op.
	res, err = svc.RecordView(article.ID, "1.2.3.4", "test-agent", testNow.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("RecordView repeat: %v", err)
	}
	if res.Counted || res.ViewCount != 1 {
		t.Fatalf("repeat view: got counted=%v count=%d, want counted=false count=1", res.Counted, res.ViewCount)
	}

	// Next calendar day counts again.
	res, err = svc.RecordView(article.ID, "1.2.3.4", "test-agent", testNow.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("RecordView next day: %v", err)
	}
	if !res.Counted || res.ViewCount != 2 {
		t.Fatalf("next-day view: got counted=%v count=%d, want counted=true count=2", res.Counted, res.ViewCount)
	}

	if got := reloadArticle(t, db, article.ID).ViewCount; got != 2 {
		t.Errorf("stored view_count = %d, want 2", got)
	}
	if got := countRows(t, db, &models.ViewEvent{}, "article_id = ?", article.ID); got != 2 {
		t.Errorf("view event rows = %d, want 2", got)
	}
}

func TestRecordViewDistinctIdentities(t *testing.T) {
	svc, db := newTestService(t)
	article := createArticle(t, db, models.StatusPublished, testNow)

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if _, err := svc.RecordView(article.ID, ip, "", testNow); err != nil {
			t.Fatalf("RecordView(%s): %v", ip, err)
		}
	}
	if got := reloadArticle(t, db, article.ID).ViewCount; got != 3 {
		t.Errorf("view_count = %d, want 3", got)
	}
}

func TestToggleLike(t *testing.T) {
	svc, db := newTestService(t)
	article := createArticle(t, db, models.StatusPublished, testNow)

	res, err := svc.ToggleLike(article.ID, "9.9.9.9", "", testNow)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if !res.Liked || res.LikeCount != 1 {
		t.Fatalf("first toggle: got liked=%v count=%d, want liked=true count=1", res.Liked, res.LikeCount)
	}

	res, err = svc.ToggleLike(article.ID, "9.9.9.9", "", testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("ToggleLike unlike: %v", err)
	}
	if res.Liked || res.LikeCount != 0 {
		t.Fatalf("second toggle: got liked=%v count=%d, want liked=false count=0", res.Liked, res.LikeCount)
	}

	if got := reloadArticle(t, db, article.ID).LikeCount; got != 0 {
		t.Errorf("stored like_count = %d, want 0", got)
	}
	if got := countRows(t, db, &models.LikeEvent{}, "article_id = ?", article.ID); got != 0 {
		t.Errorf("like event rows = %d, want 0", got)
	}
}

func TestToggleLikeSurvivesDays(t *testing.T) {
	// Unlike the view rule, likes carry no day component: a like from last
	// week still blocks (toggles off) a like today.
	svc, db := newTestService(t)
	article := createArticle(t, db, models.StatusPublished, testNow)

	if _, err := svc.ToggleLike(article.ID, "8.8.8.8", "", testNow.AddDate(0, 0, -7)); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	res, err := svc.ToggleLike(article.ID, "8.8.8.8", "", testNow)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if res.Liked {
		t.Error("like a week later should toggle off, got liked=true")
	}
}

func TestEngagementUnknownArticle(t *testing.T) {
	svc, db := newTestService(t)

	if _, err := svc.RecordView(99999, "1.2.3.4", "", testNow); !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("RecordView error = %v, want ErrArticleNotFound", err)
	}
	if _, err := svc.ToggleLike(99999, "1.2.3.4", "", testNow); !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("ToggleLike error = %v, want ErrArticleNotFound", err)
	}
	if got := countRows(t, db, &models.ViewEvent{}, ""); got != 0 {
		t.Errorf("view event rows = %d, want 0", got)
	}
	if got := countRows(t, db, &models.LikeEvent{}, ""); got != 0 {
		t.Errorf("like event rows = %d, want 0", got)
	}
}

func TestEngagementRejectsUnpublished(t *testing.T) {
	svc, db := newTestService(t)
	draft := createArticle(t, db, models.StatusDraft, testNow)
	archived := createArticle(t, db, models.StatusArchived, testNow)

	for _, id := range []uint{draft.ID, archived.ID} {
		if _, err := svc.RecordView(id, "1.2.3.4", "", testNow); !errors.Is(err, ErrArticleNotFound) {
			t.Errorf("RecordView(article %d) error = %v, want ErrArticleNotFound", id, err)
		}
	}
}

func TestEngagementInvalidArgument(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.RecordView(0, "1.2.3.4", "", testNow); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("RecordView(0) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := svc.RecordView(1, "  ", "", testNow); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("RecordView(blank identity) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := svc.ToggleLike(0, "1.2.3.4", "", testNow); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ToggleLike(0) error = %v, want ErrInvalidArgument", err)
	}
}

func TestCountersMatchEventLog(t *testing.T) {
	svc, db := newTestService(t)
	a := createArticle(t, db, models.StatusPublished, testNow)
	b := createArticle(t, db, models.StatusPublished, testNow)

	identities := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"}
	for dayOffset := 0; dayOffset < 3; dayOffset++ {
		when := testNow.AddDate(0, 0, dayOffset)
		for _, ip := range identities {
			if _, err := svc.RecordView(a.ID, ip, "", when); err != nil {
				t.Fatalf("RecordView: %v", err)
			}
			// Duplicate within the day, must not count.
			if _, err := svc.RecordView(a.ID, ip, "", when.Add(time.Hour)); err != nil {
				t.Fatalf("RecordView dup: %v", err)
			}
		}
		if _, err := svc.RecordView(b.ID, identities[0], "", when); err != nil {
			t.Fatalf("RecordView b: %v", err)
		}
	}
	// Like churn: on, off, on again.
	for _, ip := range identities {
		for i := 0; i < 3; i++ {
			if _, err := svc.ToggleLike(a.ID, ip, "", testNow); err != nil {
				t.Fatalf("ToggleLike: %v", err)
			}
		}
	}

	for _, article := range []models.Article{a, b} {
		got := reloadArticle(t, db, article.ID)
		views := countRows(t, db, &models.ViewEvent{}, "article_id = ?", article.ID)
		likes := countRows(t, db, &models.LikeEvent{}, "article_id = ?", article.ID)
		if got.ViewCount != views {
			t.Errorf("article %d view_count = %d, event rows = %d", article.ID, got.ViewCount, views)
		}
		if got.LikeCount != likes {
			t.Errorf("article %d like_count = %d, event rows = %d", article.ID, got.LikeCount, likes)
		}
	}
}

func TestViewEventUniqueIndex(t *testing.T) {
	// The store itself must reject duplicates even if the pre-check is
	// bypassed, and the gate must fold that rejection into counted=false.
	svc, db := newTestService(t)
	article := createArticle(t, db, models.StatusPublished, testNow)

	if _, err := svc.RecordView(article.ID, "5.5.5.5", "", testNow); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	dup := models.ViewEvent{
		ArticleID:  article.ID,
		Identity:   "5.5.5.5",
		ViewDate:   startOfDay(testNow),
		OccurredAt: testNow,
	}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatal("duplicate view event insert succeeded, want unique violation")
	} else if !isUniqueViolation(err) {
		t.Fatalf("duplicate insert error not recognized as unique violation: %v", err)
	}
}
