package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/frypillows/models"
	"github.com/cppla/frypillows/settings"
	"github.com/cppla/frypillows/utils"
)

// SettingsController reads and merges per-guild settings.
type SettingsController struct {
	store settings.Store
}

func NewSettingsController(store settings.Store) *SettingsController {
	return &SettingsController{store: store}
}

func (s *SettingsController) Get(ctx *gin.Context) {
	guildID := ctx.Param("guildId")
	got, err := s.store.Get(ctx.Request.Context(), guildID)
	if err != nil {
		utils.Sugar.Errorf("settings get guild=%s: %v", guildID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "settings unavailable")
		return
	}
	utils.Success(ctx, got)
}

// Update merges the "settings" object, sent as JSON body or as a form field
// holding JSON, into the stored settings. Unmentioned keys are kept.
func (s *SettingsController) Update(ctx *gin.Context) {
	guildID := ctx.Param("guildId")
	patch, ok := readSettingsPatch(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40050, "settings must be a JSON object")
		return
	}
	merged, err := s.store.Merge(ctx.Request.Context(), guildID, patch)
	if err != nil {
		utils.Sugar.Errorf("settings merge guild=%s: %v", guildID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to save settings")
		return
	}
	utils.Success(ctx, merged)
}

func readSettingsPatch(ctx *gin.Context) (models.GuildSettings, bool) {
	if strings.HasPrefix(ctx.ContentType(), "application/json") {
		var req struct {
			Settings models.GuildSettings `json:"settings"`
		}
		if err := ctx.ShouldBindJSON(&req); err != nil || req.Settings == nil {
			return nil, false
		}
		return req.Settings, true
	}
	raw := ctx.PostForm("settings")
	if raw == "" {
		return nil, false
	}
	var patch models.GuildSettings
	if err := json.Unmarshal([]byte(raw), &patch); err != nil || patch == nil {
		return nil, false
	}
	return patch, true
}
