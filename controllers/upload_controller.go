package controllers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/config"
	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/utils"
)

// UploadController stores article images on local disk with uuid filenames.
type UploadController struct {
	db *gorm.DB
}

// NewUploadController creates a new UploadController instance.
func NewUploadController(db *gorm.DB) *UploadController {
	return &UploadController{db: db}
}

var allowedUploadExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
}

// Upload accepts one multipart file under the "file" field and returns its
// public URL.
func (u *UploadController) Upload(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	cfg := config.Get()
	file, err := ctx.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "missing file field")
		return
	}
	if file.Size > int64(cfg.UploadMaxMB)<<20 {
		utils.Error(ctx, http.StatusBadRequest, 40061, fmt.Sprintf("file exceeds %dMB limit", cfg.UploadMaxMB))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedUploadExts[ext] {
		utils.Error(ctx, http.StatusBadRequest, 40062, "unsupported file type")
		return
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to prepare upload directory")
		return
	}

	name := uuid.NewString() + ext
	dst := filepath.Join(cfg.UploadDir, name)
	if err := ctx.SaveUploadedFile(file, dst); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to store file")
		return
	}

	record := models.UploadedFile{
		UserID:   userID,
		FilePath: dst,
		URL:      "/static/uploads/" + name,
	}
	if cfg.UploadTTLDays > 0 {
		expire := time.Now().AddDate(0, 0, cfg.UploadTTLDays)
		record.ExpireAt = &expire
	}
	if err := u.db.Create(&record).Error; err != nil {
		// The file is on disk; losing the row only disables timed cleanup.
		utils.Sugar.Warnf("failed to record upload %s: %v", dst, err)
	}

	utils.Success(ctx, gin.H{"url": record.URL})
}
