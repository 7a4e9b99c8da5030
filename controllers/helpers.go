package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/analytics"
	"github.com/inkpress/inkpress/middleware"
	"github.com/inkpress/inkpress/utils"
)

// getUserID extracts the authenticated user id set by the auth middleware.
func getUserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func isAdmin(ctx *gin.Context) bool {
	return ctx.GetBool(middleware.ContextIsAdminKey)
}

// parseArticleID parses the :id path parameter. Zero and garbage are both
// rejected before any storage access.
func parseArticleID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, analytics.ErrInvalidArgument
	}
	return uint(id), nil
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 || size > 100 {
		size = 20
	}
	return page, size
}

// respondAnalyticsError maps the analytics error taxonomy onto the uniform
// response envelope. Unexpected storage errors are logged, never echoed.
func respondAnalyticsError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, analytics.ErrArticleNotFound):
		utils.Error(ctx, http.StatusNotFound, 40402, "article not found")
	case errors.Is(err, analytics.ErrInvalidArgument):
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid argument")
	case errors.Is(err, analytics.ErrInvalidRange):
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid range")
	default:
		if utils.Sugar != nil {
			utils.Sugar.Errorf("analytics failure: %v", err)
		}
		utils.Error(ctx, http.StatusInternalServerError, 50001, "internal error")
	}
}
