package controllers

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/frypillows/models"
	"github.com/cppla/frypillows/storage"
	"github.com/cppla/frypillows/utils"
)

// PillowController exposes the approved pillows bucket.
type PillowController struct {
	pillows  storage.Store
	maxBytes int64
}

func NewPillowController(pillows storage.Store, maxBytes int64) *PillowController {
	return &PillowController{pillows: pillows, maxBytes: maxBytes}
}

// List returns every approved pillow with its metadata.
func (p *PillowController) List(ctx *gin.Context) {
	objs, err := p.pillows.List(ctx.Request.Context(), "")
	if err != nil {
		storageError(ctx, p.pillows, "", err)
		return
	}
	items := make([]models.PillowListItem, 0, len(objs))
	for _, o := range objs {
		items = append(items, models.PillowListItem{Key: o.Key, PillowMeta: models.PillowMetaFrom(o.Metadata)})
	}
	utils.Success(ctx, items)
}

func (p *PillowController) Image(ctx *gin.Context) {
	serveBlob(ctx, p.pillows, ctx.Param("id"))
}

func (p *PillowController) Data(ctx *gin.Context) {
	obj, ok := headObject(ctx, p.pillows, ctx.Param("id"))
	if !ok {
		return
	}
	utils.Success(ctx, models.PillowMetaFrom(obj.Metadata))
}

// Upload stores a pillow directly in the approved bucket.
func (p *PillowController) Upload(ctx *gin.Context) {
	up, ok := readUpload(ctx, p.maxBytes)
	if !ok {
		return
	}
	if !up.isImage() {
		utils.Error(ctx, http.StatusBadRequest, 40033, "file must be an image")
		return
	}

	meta := models.PillowMeta{
		DiscordUserID:     strings.TrimSpace(ctx.PostForm(models.MetaDiscordUserID)),
		DiscordApproverID: strings.TrimSpace(ctx.PostForm(models.MetaDiscordApproverID)),
		SubmittedAt:       strings.TrimSpace(ctx.PostForm(models.MetaSubmittedAt)),
		PillowName:        utils.SanitizeName(ctx.PostForm(models.MetaPillowName)),
		PillowType:        strings.TrimSpace(ctx.DefaultPostForm(models.MetaPillowType, models.DefaultPillowType)),
		UserName:          utils.SanitizeName(ctx.PostForm(models.MetaUserName)),
	}
	if meta.DiscordUserID == "" || meta.PillowName == "" {
		utils.Error(ctx, http.StatusBadRequest, 40040, "discordUserId and pillowName are required")
		return
	}
	if !models.ValidPillowType(meta.PillowType) {
		utils.Error(ctx, http.StatusBadRequest, 40041, "pillowType must not contain '_', '/' or ':'")
		return
	}
	if meta.SubmittedAt == "" {
		meta.SubmittedAt = models.FormatTimestamp(time.Now())
	}

	key := models.PillowKey(meta.DiscordUserID, meta.PillowType)
	err := p.pillows.Put(ctx.Request.Context(), key, bytes.NewReader(up.body), storage.PutOptions{
		ContentType: up.contentType,
		Metadata:    meta.Map(),
	})
	if err != nil {
		storageError(ctx, p.pillows, key, err)
		return
	}
	utils.Success(ctx, gin.H{"key": key})
}

func (p *PillowController) Delete(ctx *gin.Context) {
	deleteObject(ctx, p.pillows, ctx.Param("id"))
}
