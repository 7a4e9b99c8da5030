package analytics

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/inkpress/inkpress/models"
)

const (
	defaultTrendDays = 30
	maxTrendDays     = 365
	maxTopLimit      = 50
)

// TrendPoint is one day of a zero-filled views series.
type TrendPoint struct {
	Date  string `json:"date"`
	Views int64  `json:"views"`
}

// DashboardMetrics is the admin dashboard read view. Totals and rankings are
// all-time (denormalized counters); only ViewsTrend is scoped by the range.
type DashboardMetrics struct {
	TotalArticles  int64            `json:"total_articles"`
	TotalViews     int64            `json:"total_views"`
	TotalLikes     int64            `json:"total_likes"`
	RecentArticles []models.Article `json:"recent_articles"`
	TopArticles    []models.Article `json:"top_articles"`
	ViewsTrend     []TrendPoint     `json:"views_trend"`
}

// ArticleAnalytics pairs an article with its daily views series.
type ArticleAnalytics struct {
	Article models.Article `json:"article"`
	Trend   []TrendPoint   `json:"trend"`
}

// EngagementSummary aggregates raw events strictly within the resolved
// window; it never reads the denormalized counters.
type EngagementSummary struct {
	Period             string  `json:"period"`
	ArticlesViewed     int64   `json:"articles_viewed"`
	TotalViews         int64   `json:"total_views"`
	UniqueVisitors     int64   `json:"unique_visitors"`
	TotalLikes         int64   `json:"total_likes"`
	AvgViewsPerVisitor float64 `json:"avg_views_per_visitor"`
}

// DashboardMetrics computes the dashboard aggregates. The range label is
// validated and applied to the trend series only.
func (s *Service) DashboardMetrics(label string, now time.Time) (*DashboardMetrics, error) {
	win, err := ResolveRange(label, now)
	if err != nil {
		return nil, err
	}

	var m DashboardMetrics
	if err := s.db.Model(&models.Article{}).Count(&m.TotalArticles).Error; err != nil {
		return nil, storageErr("count articles", err)
	}
	if err := s.db.Model(&models.Article{}).
		Select("COALESCE(SUM(view_count),0)").Scan(&m.TotalViews).Error; err != nil {
		return nil, storageErr("sum views", err)
	}
	if err := s.db.Model(&models.Article{}).
		Select("COALESCE(SUM(like_count),0)").Scan(&m.TotalLikes).Error; err != nil {
		return nil, storageErr("sum likes", err)
	}

	if err := s.db.Where("status = ?", models.StatusPublished).
		Order("published_at DESC").Limit(5).
		Find(&m.RecentArticles).Error; err != nil {
		return nil, storageErr("recent articles", err)
	}

	top, err := s.topArticles(10)
	if err != nil {
		return nil, err
	}
	m.TopArticles = top

	trend, err := s.viewsTrend(0, win)
	if err != nil {
		return nil, err
	}
	m.ViewsTrend = trend

	return &m, nil
}

// TopArticles ranks published articles by all-time counters: views desc,
// likes desc, then id asc for a deterministic order. The range label is
// validated but not applied, since counters are not time-sliced.
func (s *Service) TopArticles(limit int, label string, now time.Time) ([]models.Article, error) {
	if limit < 1 || limit > maxTopLimit {
		return nil, fmt.Errorf("%w: limit %d out of [1,%d]", ErrInvalidArgument, limit, maxTopLimit)
	}
	if _, err := ResolveRange(label, now); err != nil {
		return nil, err
	}
	return s.topArticles(limit)
}

func (s *Service) topArticles(limit int) ([]models.Article, error) {
	var articles []models.Article
	err := s.db.Where("status = ?", models.StatusPublished).
		Order("view_count DESC, like_count DESC, id ASC").Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, storageErr("top articles", err)
	}
	return articles, nil
}

// ArticleAnalytics returns one article with its daily views trend over the
// last days calendar days (default 30, capped at a year). Gaps are
// zero-filled.
func (s *Service) ArticleAnalytics(articleID uint, days int, now time.Time) (*ArticleAnalytics, error) {
	if articleID == 0 {
		return nil, ErrInvalidArgument
	}
	if days == 0 {
		days = defaultTrendDays
	}
	if days < 1 || days > maxTrendDays {
		return nil, fmt.Errorf("%w: days %d out of [1,%d]", ErrInvalidArgument, days, maxTrendDays)
	}

	var article models.Article
	if err := s.db.First(&article, articleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, storageErr("load article", err)
	}

	win := Window{From: startOfDay(now.AddDate(0, 0, -(days - 1))), To: now}
	trend, err := s.viewsTrend(articleID, win)
	if err != nil {
		return nil, err
	}
	return &ArticleAnalytics{Article: article, Trend: trend}, nil
}

// EngagementSummary aggregates the event tables over a bounded window; the
// all-time label is rejected because the summary is defined per period.
func (s *Service) EngagementSummary(label string, now time.Time) (*EngagementSummary, error) {
	win, err := ResolveRange(label, now)
	if err != nil {
		return nil, err
	}
	if win.From.IsZero() {
		return nil, fmt.Errorf("%w: %q not allowed for engagement summary", ErrInvalidRange, label)
	}

	sum := EngagementSummary{Period: win.Label}
	views := s.db.Model(&models.ViewEvent{}).
		Where("occurred_at >= ? AND occurred_at <= ?", win.From, win.To)

	if err := views.Session(&gorm.Session{}).Count(&sum.TotalViews).Error; err != nil {
		return nil, storageErr("count views", err)
	}
	if err := views.Session(&gorm.Session{}).
		Select("COUNT(DISTINCT article_id)").Scan(&sum.ArticlesViewed).Error; err != nil {
		return nil, storageErr("count viewed articles", err)
	}
	if err := views.Session(&gorm.Session{}).
		Select("COUNT(DISTINCT identity)").Scan(&sum.UniqueVisitors).Error; err != nil {
		return nil, storageErr("count unique visitors", err)
	}
	if err := s.db.Model(&models.LikeEvent{}).
		Where("occurred_at >= ? AND occurred_at <= ?", win.From, win.To).
		Count(&sum.TotalLikes).Error; err != nil {
		return nil, storageErr("count likes", err)
	}

	if sum.UniqueVisitors > 0 {
		sum.AvgViewsPerVisitor = float64(sum.TotalViews) / float64(sum.UniqueVisitors)
	}
	return &sum, nil
}

// viewsTrend buckets view events by calendar day over the window and fills
// missing days with zero, ascending by date. articleID zero means site-wide.
// An unbounded window starts at the earliest recorded day; with no events at
// all the series is empty.
func (s *Service) viewsTrend(articleID uint, win Window) ([]TrendPoint, error) {
	from := win.From
	if from.IsZero() {
		first, ok, err := s.firstViewDay(articleID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return []TrendPoint{}, nil
		}
		from = first
	}

	type trendRow struct {
		ViewDate time.Time `gorm:"column:view_date"`
		Views    int64     `gorm:"column:views"`
	}

	to := startOfDay(win.To)
	q := s.db.Model(&models.ViewEvent{}).
		Select("view_date, COUNT(*) AS views").
		Where("view_date >= ? AND view_date <= ?", from, to).
		Group("view_date")
	if articleID != 0 {
		q = q.Where("article_id = ?", articleID)
	}

	var rows []trendRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, storageErr("views trend", err)
	}

	byDay := make(map[string]int64, len(rows))
	for _, r := range rows {
		byDay[r.ViewDate.Local().Format("2006-01-02")] = r.Views
	}

	var points []TrendPoint
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		points = append(points, TrendPoint{Date: key, Views: byDay[key]})
	}
	return points, nil
}

func (s *Service) firstViewDay(articleID uint) (time.Time, bool, error) {
	q := s.db.Model(&models.ViewEvent{})
	if articleID != 0 {
		q = q.Where("article_id = ?", articleID)
	}
	var first sql.NullTime
	if err := q.Select("MIN(view_date)").Scan(&first).Error; err != nil {
		return time.Time{}, false, storageErr("first view day", err)
	}
	if !first.Valid {
		return time.Time{}, false, nil
	}
	return startOfDay(first.Time.Local()), true, nil
}
