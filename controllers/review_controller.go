package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/frypillows/audit"
	"github.com/cppla/frypillows/utils"
)

// ReviewController serves the moderation review log.
type ReviewController struct {
	trail *audit.Trail
}

func NewReviewController(trail *audit.Trail) *ReviewController {
	return &ReviewController{trail: trail}
}

// List returns recent decisions, optionally for one pillow key.
func (r *ReviewController) List(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	recs, err := r.trail.Recent(ctx.Request.Context(), ctx.Query("key"), limit)
	if err != nil {
		utils.Sugar.Errorf("review log: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50050, "review log unavailable")
		return
	}
	utils.Success(ctx, recs)
}
