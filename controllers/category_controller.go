package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/utils"
)

// CategoryController manages article categories.
type CategoryController struct {
	db *gorm.DB
}

// NewCategoryController creates a new CategoryController instance.
func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{db: db}
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=64"`
	Description string `json:"description"`
}

// ListCategories returns all categories with their published article counts.
func (c *CategoryController) ListCategories(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(utils.CacheKeyCategoryList); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var categories []models.Category
	if err := c.db.Order("name ASC").Find(&categories).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list categories")
		return
	}

	type categoryWithCount struct {
		models.Category
		ArticleCount int64 `json:"article_count"`
	}
	items := make([]categoryWithCount, 0, len(categories))
	for _, cat := range categories {
		var n int64
		if err := c.db.Model(&models.Article{}).
			Where("category_id = ? AND status = ?", cat.ID, models.StatusPublished).
			Count(&n).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to count articles")
			return
		}
		items = append(items, categoryWithCount{Category: cat, ArticleCount: n})
	}

	payload := gin.H{"items": items}
	utils.CacheSetJSON(utils.CacheKeyCategoryList, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, 0)
	utils.Success(ctx, payload)
}

// CreateCategory adds a category; names and slugs are unique.
func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	var req categoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	name := strings.TrimSpace(req.Name)
	slug := utils.Slugify(name)
	if slug == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "name does not produce a usable slug")
		return
	}

	category := models.Category{Name: name, Slug: slug, Description: strings.TrimSpace(req.Description)}
	if err := c.db.Create(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40901, "category already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to create category")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyCategoryList)
	utils.Success(ctx, gin.H{"category": category})
}

// UpdateCategory renames a category or changes its description.
func (c *CategoryController) UpdateCategory(ctx *gin.Context) {
	id := ctx.Param("id")

	var category models.Category
	if err := c.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "category not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load category")
		return
	}

	var req categoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	name := strings.TrimSpace(req.Name)
	slug := utils.Slugify(name)
	if slug == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "name does not produce a usable slug")
		return
	}
	category.Name = name
	category.Slug = slug
	category.Description = strings.TrimSpace(req.Description)

	if err := c.db.Save(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40901, "category already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to update category")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyCategoryList)
	utils.InvalidateByPrefix(utils.CacheKeyArticleList)
	utils.Success(ctx, gin.H{"category": category})
}

// DeleteCategory removes a category; its articles keep existing without one.
func (c *CategoryController) DeleteCategory(ctx *gin.Context) {
	id := ctx.Param("id")

	var category models.Category
	if err := c.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "category not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load category")
		return
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Article{}).
			Where("category_id = ?", category.ID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to delete category")
		return
	}

	utils.InvalidateByPrefix(utils.CacheKeyCategoryList)
	utils.InvalidateByPrefix(utils.CacheKeyArticleList)
	utils.Success(ctx, gin.H{"deleted": category.ID})
}
