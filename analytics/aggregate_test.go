package analytics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/inkpress/inkpress/models"
)

func TestTopArticlesOrdering(t *testing.T) {
	svc, db := newTestService(t)

	first := createArticle(t, db, models.StatusPublished, testNow)
	second := createArticle(t, db, models.StatusPublished, testNow)
	third := createArticle(t, db, models.StatusPublished, testNow)
	setCounters(t, svc, first.ID, 10, 3)
	setCounters(t, svc, second.ID, 10, 7)
	setCounters(t, svc, third.ID, 5, 1)

	top, err := svc.TopArticles(2, Range7d, testNow)
	if err != nil {
		t.Fatalf("TopArticles: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("len(top) = %d, want 2", len(top))
	}
	// Equal views: the higher like count wins.
	if top[0].ID != second.ID {
		t.Errorf("top[0].ID = %d, want %d (views=10 likes=7)", top[0].ID, second.ID)
	}
	if top[1].ID != first.ID {
		t.Errorf("top[1].ID = %d, want %d (views=10 likes=3)", top[1].ID, first.ID)
	}
}

func TestTopArticlesTieBreakByID(t *testing.T) {
	svc, db := newTestService(t)

	a := createArticle(t, db, models.StatusPublished, testNow)
	b := createArticle(t, db, models.StatusPublished, testNow)
	setCounters(t, svc, a.ID, 4, 2)
	setCounters(t, svc, b.ID, 4, 2)

	top, err := svc.TopArticles(10, RangeAll, testNow)
	if err != nil {
		t.Fatalf("TopArticles: %v", err)
	}
	if len(top) != 2 || top[0].ID != a.ID || top[1].ID != b.ID {
		t.Errorf("fully tied articles must order by id ascending, got %v then %v", top[0].ID, top[1].ID)
	}
}

func TestTopArticlesExcludesDrafts(t *testing.T) {
	svc, db := newTestService(t)

	createArticle(t, db, models.StatusDraft, testNow)
	pub := createArticle(t, db, models.StatusPublished, testNow)

	top, err := svc.TopArticles(10, RangeAll, testNow)
	if err != nil {
		t.Fatalf("TopArticles: %v", err)
	}
	if len(top) != 1 || top[0].ID != pub.ID {
		t.Errorf("top = %v, want only published article %d", top, pub.ID)
	}
}

func TestTopArticlesValidation(t *testing.T) {
	svc, _ := newTestService(t)

	for _, limit := range []int{0, -1, 51} {
		if _, err := svc.TopArticles(limit, Range7d, testNow); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("TopArticles(limit=%d) error = %v, want ErrInvalidArgument", limit, err)
		}
	}
	if _, err := svc.TopArticles(10, "90d", testNow); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("TopArticles(range=90d) error = %v, want ErrInvalidRange", err)
	}
}

func TestDashboardMetrics(t *testing.T) {
	svc, db := newTestService(t)

	older := createArticle(t, db, models.StatusPublished, testNow.AddDate(0, 0, -3))
	newer := createArticle(t, db, models.StatusPublished, testNow.AddDate(0, 0, -1))
	createArticle(t, db, models.StatusDraft, testNow)

	if _, err := svc.RecordView(older.ID, "1.2.3.4", "", testNow.AddDate(0, 0, -2)); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if _, err := svc.RecordView(newer.ID, "1.2.3.4", "", testNow); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if _, err := svc.ToggleLike(newer.ID, "1.2.3.4", "", testNow); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}

	m, err := svc.DashboardMetrics(Range7d, testNow)
	if err != nil {
		t.Fatalf("DashboardMetrics: %v", err)
	}
	if m.TotalArticles != 3 {
		t.Errorf("TotalArticles = %d, want 3 (drafts included in totals)", m.TotalArticles)
	}
	if m.TotalViews != 2 || m.TotalLikes != 1 {
		t.Errorf("totals = %d views / %d likes, want 2 / 1", m.TotalViews, m.TotalLikes)
	}
	if len(m.RecentArticles) != 2 || m.RecentArticles[0].ID != newer.ID {
		t.Errorf("recent articles must order published_at desc and skip drafts, got %+v", articleIDs(m.RecentArticles))
	}
	if len(m.TopArticles) != 2 {
		t.Errorf("len(TopArticles) = %d, want 2", len(m.TopArticles))
	}
	if len(m.ViewsTrend) != 7 {
		t.Fatalf("len(ViewsTrend) = %d, want 7 for range 7d", len(m.ViewsTrend))
	}
	var trendTotal int64
	for _, p := range m.ViewsTrend {
		trendTotal += p.Views
	}
	if trendTotal != 2 {
		t.Errorf("trend total = %d, want 2", trendTotal)
	}
}

func TestDashboardMetricsAllRangeNoEvents(t *testing.T) {
	svc, db := newTestService(t)
	createArticle(t, db, models.StatusPublished, testNow)

	m, err := svc.DashboardMetrics(RangeAll, testNow)
	if err != nil {
		t.Fatalf("DashboardMetrics: %v", err)
	}
	if len(m.ViewsTrend) != 0 {
		t.Errorf("all-time trend with no events should be empty, got %d points", len(m.ViewsTrend))
	}
}

func TestDashboardMetricsInvalidRange(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.DashboardMetrics("yesterday", testNow); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("error = %v, want ErrInvalidRange", err)
	}
}

func TestArticleAnalyticsTrendZeroFill(t *testing.T) {
	svc, db := newTestService(t)
	article := createArticle(t, db, models.StatusPublished, testNow)
	other := createArticle(t, db, models.StatusPublished, testNow)

	// Views on the first and last day of a 5-day window, nothing between.
	if _, err := svc.RecordView(article.ID, "1.1.1.1", "", testNow.AddDate(0, 0, -4)); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if _, err := svc.RecordView(article.ID, "1.1.1.1", "", testNow); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if _, err := svc.RecordView(article.ID, "2.2.2.2", "", testNow); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	// Another article's views must not leak into this trend.
	if _, err := svc.RecordView(other.ID, "1.1.1.1", "", testNow.AddDate(0, 0, -2)); err != nil {
		t.Fatalf("RecordView: %v", err)
	}

	res, err := svc.ArticleAnalytics(article.ID, 5, testNow)
	if err != nil {
		t.Fatalf("ArticleAnalytics: %v", err)
	}
	if res.Article.ID != article.ID {
		t.Errorf("Article.ID = %d, want %d", res.Article.ID, article.ID)
	}
	if len(res.Trend) != 5 {
		t.Fatalf("len(Trend) = %d, want 5", len(res.Trend))
	}
	wantViews := []int64{1, 0, 0, 0, 2}
	for i, p := range res.Trend {
		if p.Views != wantViews[i] {
			t.Errorf("Trend[%d] = %d views on %s, want %d", i, p.Views, p.Date, wantViews[i])
		}
	}
	for i := 1; i < len(res.Trend); i++ {
		if res.Trend[i-1].Date >= res.Trend[i].Date {
			t.Errorf("trend dates not ascending: %s before %s", res.Trend[i-1].Date, res.Trend[i].Date)
		}
	}
}

func TestArticleAnalyticsValidation(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.ArticleAnalytics(99999, 0, testNow); !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("unknown article error = %v, want ErrArticleNotFound", err)
	}
	if _, err := svc.ArticleAnalytics(0, 0, testNow); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero id error = %v, want ErrInvalidArgument", err)
	}
	if _, err := svc.ArticleAnalytics(1, 400, testNow); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("oversized window error = %v, want ErrInvalidArgument", err)
	}
}

func TestEngagementSummary(t *testing.T) {
	svc, db := newTestService(t)
	a := createArticle(t, db, models.StatusPublished, testNow)
	b := createArticle(t, db, models.StatusPublished, testNow)

	// Two visitors; one of them views on two days, and one event falls
	// outside the 7d window and must be excluded.
	mustView(t, svc, a.ID, "1.1.1.1", testNow.AddDate(0, 0, -1))
	mustView(t, svc, a.ID, "1.1.1.1", testNow)
	mustView(t, svc, b.ID, "2.2.2.2", testNow)
	mustView(t, svc, a.ID, "3.3.3.3", testNow.AddDate(0, 0, -10))
	if _, err := svc.ToggleLike(a.ID, "1.1.1.1", "", testNow); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if _, err := svc.ToggleLike(b.ID, "9.9.9.9", "", testNow.AddDate(0, 0, -10)); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}

	sum, err := svc.EngagementSummary(Range7d, testNow)
	if err != nil {
		t.Fatalf("EngagementSummary: %v", err)
	}
	if sum.Period != Range7d {
		t.Errorf("Period = %q, want %q", sum.Period, Range7d)
	}
	if sum.TotalViews != 3 {
		t.Errorf("TotalViews = %d, want 3", sum.TotalViews)
	}
	if sum.ArticlesViewed != 2 {
		t.Errorf("ArticlesViewed = %d, want 2", sum.ArticlesViewed)
	}
	if sum.UniqueVisitors != 2 {
		t.Errorf("UniqueVisitors = %d, want 2", sum.UniqueVisitors)
	}
	if sum.TotalLikes != 1 {
		t.Errorf("TotalLikes = %d, want 1 (out-of-window like excluded)", sum.TotalLikes)
	}
	if sum.AvgViewsPerVisitor != 1.5 {
		t.Errorf("AvgViewsPerVisitor = %v, want 1.5", sum.AvgViewsPerVisitor)
	}
}

// The window is closed at the query instant: an event stamped at exactly the
// summary's own timestamp belongs to that summary.
func TestEngagementSummaryIncludesQueryInstant(t *testing.T) {
	svc, db := newTestService(t)
	a := createArticle(t, db, models.StatusPublished, testNow)

	mustView(t, svc, a.ID, "1.1.1.1", testNow)
	if _, err := svc.ToggleLike(a.ID, "1.1.1.1", "", testNow); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}

	sum, err := svc.EngagementSummary(Range7d, testNow)
	if err != nil {
		t.Fatalf("EngagementSummary: %v", err)
	}
	if sum.TotalViews != 1 {
		t.Errorf("TotalViews = %d, want 1 (event at window end must count)", sum.TotalViews)
	}
	if sum.UniqueVisitors != 1 {
		t.Errorf("UniqueVisitors = %d, want 1", sum.UniqueVisitors)
	}
	if sum.TotalLikes != 1 {
		t.Errorf("TotalLikes = %d, want 1", sum.TotalLikes)
	}
}

func TestEngagementSummaryNoEvents(t *testing.T) {
	svc, _ := newTestService(t)

	sum, err := svc.EngagementSummary(Range30d, testNow)
	if err != nil {
		t.Fatalf("EngagementSummary: %v", err)
	}
	if sum.UniqueVisitors != 0 {
		t.Errorf("UniqueVisitors = %d, want 0", sum.UniqueVisitors)
	}
	if sum.AvgViewsPerVisitor != 0 {
		t.Errorf("AvgViewsPerVisitor = %v, want 0 (division guard)", sum.AvgViewsPerVisitor)
	}
}

func TestEngagementSummaryRejectsAllTime(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.EngagementSummary(RangeAll, testNow); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("error = %v, want ErrInvalidRange", err)
	}
}

func mustView(t *testing.T, svc *Service, articleID uint, identity string, when time.Time) {
	t.Helper()
	if _, err := svc.RecordView(articleID, identity, "", when); err != nil {
		t.Fatalf("RecordView(%d, %s): %v", articleID, identity, err)
	}
}

// setCounters drives the counters through the gate so counters and event
// rows stay consistent: n distinct identities view, m distinct identities like.
func setCounters(t *testing.T, svc *Service, articleID uint, views, likes int) {
	t.Helper()
	for i := 0; i < views; i++ {
		mustView(t, svc, articleID, fmt.Sprintf("10.0.%d.%d", i/250, i%250+1), testNow)
	}
	for i := 0; i < likes; i++ {
		if _, err := svc.ToggleLike(articleID, fmt.Sprintf("10.1.%d.%d", i/250, i%250+1), "", testNow); err != nil {
			t.Fatalf("ToggleLike: %v", err)
		}
	}
}

func articleIDs(articles []models.Article) []uint {
	ids := make([]uint, 0, len(articles))
	for _, a := range articles {
		ids = append(ids, a.ID)
	}
	return ids
}
