package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/analytics"
	"github.com/inkpress/inkpress/utils"
)

// EngagementController is the HTTP boundary for the view/like dedup gate.
// Identity is the client IP: an opaque dedup key, not a trusted user signal
// (visitors behind NAT collapse to one identity by design).
type EngagementController struct {
	svc *analytics.Service
}

// NewEngagementController creates a new controller instance.
func NewEngagementController(db *gorm.DB) *EngagementController {
	return &EngagementController{svc: analytics.NewService(db)}
}

// RecordView counts a view for the article, at most once per visitor per
// day. Repeats are a successful no-op.
func (e *EngagementController) RecordView(ctx *gin.Context) {
	id, err := parseArticleID(ctx.Param("id"))
	if err != nil {
		respondAnalyticsError(ctx, err)
		return
	}

	res, err := e.svc.RecordView(id, ctx.ClientIP(), ctx.Request.UserAgent(), time.Now())
	if err != nil {
		respondAnalyticsError(ctx, err)
		return
	}
	if res.Counted {
		utils.InvalidateAnalytics()
	}
	utils.Success(ctx, res)
}

// ToggleLike flips the visitor's like state for the article.
func (e *EngagementController) ToggleLike(ctx *gin.Context) {
	id, err := parseArticleID(ctx.Param("id"))
	if err != nil {
		respondAnalyticsError(ctx, err)
		return
	}

	res, err := e.svc.ToggleLike(id, ctx.ClientIP(), ctx.Request.UserAgent(), time.Now())
	if err != nil {
		respondAnalyticsError(ctx, err)
		return
	}
	utils.InvalidateAnalytics()
	utils.Success(ctx, res)
}
