package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/utils"
)

// ArticleController manages CRUD operations for articles.
type ArticleController struct {
	db *gorm.DB
}

// NewArticleController creates a new ArticleController instance.
func NewArticleController(db *gorm.DB) *ArticleController {
	return &ArticleController{db: db}
}

type articleRequest struct {
	Title      string `json:"title" binding:"required,min=1"`
	Summary    string `json:"summary"`
	Content    string `json:"content" binding:"required"`
	CategoryID *uint  `json:"category_id"`
	Status     string `json:"status"`
}

// CreateArticle allows authenticated authors to create articles, as drafts
// by default.
func (a *ArticleController) CreateArticle(ctx *gin.Context) {
	var req articleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}
	status := req.Status
	if status == "" {
		status = models.StatusDraft
	}
	if !validStatus(status) {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid status")
		return
	}
	if req.CategoryID != nil && !a.categoryExists(*req.CategoryID) {
		utils.Error(ctx, http.StatusBadRequest, 40023, "unknown category")
		return
	}

	article := models.Article{
		UserID:     userID,
		CategoryID: req.CategoryID,
		Title:      title,
		Slug:       a.uniqueSlug(title),
		Summary:    strings.TrimSpace(req.Summary),
		Content:    utils.Sanitize(req.Content),
		Status:     status,
	}
	if status == models.StatusPublished {
		now := time.Now()
		article.PublishedAt = &now
	}

	if err := a.db.Create(&article).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create article")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyArticleList)
	utils.InvalidateAnalytics()
	utils.Success(ctx, gin.H{"article": article})
}

// ListArticles returns paginated published articles; authenticated admins
// may filter by any status.
func (a *ArticleController) ListArticles(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	category := strings.TrimSpace(ctx.Query("category"))
	status := strings.TrimSpace(ctx.Query("status"))

	if status == "" || !isAdmin(ctx) {
		status = models.StatusPublished
	}

	cacheKey := ""
	if search == "" && status == models.StatusPublished {
		cacheKey = fmt.Sprintf("%scat=%s:page=%d:size=%d", utils.CacheKeyArticleList, category, page, pageSize)
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	query := a.db.Model(&models.Article{}).Preload("User").Preload("Category").
		Where("status = ?", status).Order("published_at DESC, id DESC")
	if search != "" {
		query = query.Where("title LIKE ? OR content LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if category != "" {
		query = query.Joins("JOIN categories ON categories.id = articles.category_id").
			Where("categories.slug = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count articles")
		return
	}
	var articles []models.Article
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&articles).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list articles")
		return
	}

	payload := gin.H{
		"items": articles,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	if cacheKey != "" {
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetArticle returns a single article by id. Unpublished articles are only
// visible to their author or an admin.
func (a *ArticleController) GetArticle(ctx *gin.Context) {
	id, err := parseArticleID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid article id")
		return
	}

	var article models.Article
	if err := a.db.Preload("User").Preload("Category").First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "article not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load article")
		return
	}

	if article.Status != models.StatusPublished {
		userID, ok := getUserID(ctx)
		if !ok || (userID != article.UserID && !isAdmin(ctx)) {
			utils.Error(ctx, http.StatusNotFound, 40402, "article not found")
			return
		}
	}

	utils.Success(ctx, gin.H{"article": article})
}

// UpdateArticle lets the author or an admin modify an article. The slug is
// regenerated only when the title changes.
func (a *ArticleController) UpdateArticle(ctx *gin.Context) {
	id, err := parseArticleID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid article id")
		return
	}

	var req articleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	if req.Status != "" && !validStatus(req.Status) {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid status")
		return
	}

	article, ok := a.loadOwned(ctx, id)
	if !ok {
		return
	}

	title := strings.TrimSpace(req.Title)
	if title != "" && title != article.Title {
		article.Title = title
		article.Slug = a.uniqueSlug(title)
	}
	article.Summary = strings.TrimSpace(req.Summary)
	article.Content = utils.Sanitize(req.Content)
	if req.CategoryID != nil && !a.categoryExists(*req.CategoryID) {
		utils.Error(ctx, http.StatusBadRequest, 40023, "unknown category")
		return
	}
	article.CategoryID = req.CategoryID
	if req.Status != "" {
		a.applyStatus(article, req.Status)
	}

	if err := a.db.Save(article).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to update article")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyArticleList)
	utils.InvalidateByPrefix(utils.CacheKeyArticleItem)
	utils.InvalidateAnalytics()
	utils.Success(ctx, gin.H{"article": article})
}

// PublishArticle transitions an article to published, stamping published_at
// on the first publish only.
func (a *ArticleController) PublishArticle(ctx *gin.Context) {
	id, err := parseArticleID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid article id")
		return
	}

	article, ok := a.loadOwned(ctx, id)
	if !ok {
		return
	}

	a.applyStatus(article, models.StatusPublished)
	if err := a.db.Save(article).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to publish article")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyArticleList)
	utils.InvalidateAnalytics()
	utils.Success(ctx, gin.H{"article": article})
}

// DeleteArticle removes an article and its engagement events in one
// transaction, keeping the event tables free of orphans.
func (a *ArticleController) DeleteArticle(ctx *gin.Context) {
	id, err := parseArticleID(ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid article id")
		return
	}

	article, ok := a.loadOwned(ctx, id)
	if !ok {
		return
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", article.ID).Delete(&models.ViewEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", article.ID).Delete(&models.LikeEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Article{}, article.ID).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to delete article")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyArticleList)
	utils.InvalidateByPrefix(utils.CacheKeyArticleItem)
	utils.InvalidateAnalytics()
	utils.Success(ctx, gin.H{"deleted": article.ID})
}

// loadOwned loads an article and enforces author-or-admin access.
func (a *ArticleController) loadOwned(ctx *gin.Context, id uint) (*models.Article, bool) {
	var article models.Article
	if err := a.db.First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "article not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load article")
		}
		return nil, false
	}

	userID, ok := getUserID(ctx)
	if !ok || (userID != article.UserID && !isAdmin(ctx)) {
		utils.Error(ctx, http.StatusForbidden, 40302, "not the article author")
		return nil, false
	}
	return &article, true
}

func (a *ArticleController) applyStatus(article *models.Article, status string) {
	article.Status = status
	if status == models.StatusPublished && article.PublishedAt == nil {
		now := time.Now()
		article.PublishedAt = &now
	}
}

func (a *ArticleController) categoryExists(id uint) bool {
	var n int64
	if err := a.db.Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false
	}
	return n > 0
}

// uniqueSlug derives a slug from the title and suffixes a counter on
// collision.
func (a *ArticleController) uniqueSlug(title string) string {
	base := utils.Slugify(title)
	if base == "" {
		base = "article"
	}
	slug := base
	for i := 2; ; i++ {
		var n int64
		if err := a.db.Model(&models.Article{}).Where("slug = ?", slug).Count(&n).Error; err != nil || n == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func validStatus(status string) bool {
	switch status {
	case models.StatusDraft, models.StatusPublished, models.StatusArchived:
		return true
	}
	return false
}
