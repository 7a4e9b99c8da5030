package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/analytics"
	"github.com/inkpress/inkpress/utils"
)

// AnalyticsController serves the dashboard read views. Aggregates are cached
// briefly in Redis; engagement writes invalidate them.
type AnalyticsController struct {
	svc *analytics.Service
}

// NewAnalyticsController creates a new controller instance.
func NewAnalyticsController(db *gorm.DB) *AnalyticsController {
	return &AnalyticsController{svc: analytics.NewService(db)}
}

// Dashboard returns totals, recent/top articles and the views trend.
func (a *AnalyticsController) Dashboard(ctx *gin.Context) {
	rangeLabel := ctx.DefaultQuery("range", analytics.Range30d)

	cacheKey := utils.CacheKeyDashboard + rangeLabel
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	metrics, err := a.svc.DashboardMetrics(rangeLabel, time.Now())
	if err != nil {
		respondAnalyticsError(ctx, err)
		return
	}

	cacheEnvelope(cacheKey, metrics)
	utils.Success(ctx, metrics)
}

// TopArticles returns the top-N ranking by all-time counters.
func (a *AnalyticsController) TopArticles(ctx *gin.Context) {
	rangeLabel := ctx.DefaultQuery("range", analytics.RangeAll)
	limitStr := ctx.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		respondAnalyticsError(ctx, analytics.ErrInvalidArgument)
		return
	}

	cacheKey := utils.CacheKeyTopArticles + rangeLabel + ":" + limitStr
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	articles, err := a.svc.TopArticles(limit, rangeLabel, time.Now())
	if err != nil {
		respondAnalyticsError(ctx, err)
		return
	}

	payload := gin.H{"articles": articles}
	cacheEnvelope(cacheKey, payload)
	utils.Success(ctx, payload)
}

// ArticleAnalytics returns one article with its daily views trend.
func (a *AnalyticsController) ArticleAnalytics(ctx *gin.Context) {
	id, err := parseArticleID(ctx.Param("id"))
	if err != nil {
		respondAnalyticsError(ctx, err)
		return
	}

	days := 0
	if raw := ctx.Query("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil {
			respondAnalyticsError(ctx, analytics.ErrInvalidArgument)
			return
		}
	}

	res, err := a.svc.ArticleAnalytics(id, days, time.Now())
	if err != nil {
		respondAnalyticsError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// EngagementSummary returns windowed aggregates over the raw event tables.
func (a *AnalyticsController) EngagementSummary(ctx *gin.Context) {
	rangeLabel := ctx.DefaultQuery("range", analytics.Range7d)

	sum, err := a.svc.EngagementSummary(rangeLabel, time.Now())
	if err != nil {
		respondAnalyticsError(ctx, err)
		return
	}
	utils.Success(ctx, sum)
}

// cacheEnvelope stores the full success envelope so cache hits can be served
// as raw bytes.
func cacheEnvelope(key string, data interface{}) {
	utils.CacheSetJSON(key, utils.JSONResponse{Code: 0, Message: "success", Data: data}, 5*time.Minute)
}
