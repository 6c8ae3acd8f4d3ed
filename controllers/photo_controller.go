package controllers

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/frypillows/models"
	"github.com/cppla/frypillows/storage"
	"github.com/cppla/frypillows/utils"
)

// PhotoController exposes the photos bucket. Photo keys are random UUIDs.
type PhotoController struct {
	photos   storage.Store
	maxBytes int64
	newKey   func() string
}

func NewPhotoController(photos storage.Store, maxBytes int64) *PhotoController {
	return &PhotoController{photos: photos, maxBytes: maxBytes, newKey: uuid.NewString}
}

func (p *PhotoController) List(ctx *gin.Context) {
	objs, err := p.photos.List(ctx.Request.Context(), "")
	if err != nil {
		storageError(ctx, p.photos, "", err)
		return
	}
	items := make([]models.PhotoListItem, 0, len(objs))
	for _, o := range objs {
		items = append(items, models.PhotoListItem{Key: o.Key, PhotoMeta: models.PhotoMetaFrom(o.Metadata)})
	}
	utils.Success(ctx, items)
}

func (p *PhotoController) Image(ctx *gin.Context) {
	serveBlob(ctx, p.photos, ctx.Param("id"))
}

func (p *PhotoController) Data(ctx *gin.Context) {
	obj, ok := headObject(ctx, p.photos, ctx.Param("id"))
	if !ok {
		return
	}
	utils.Success(ctx, models.PhotoMetaFrom(obj.Metadata))
}

func (p *PhotoController) Upload(ctx *gin.Context) {
	up, ok := readUpload(ctx, p.maxBytes)
	if !ok {
		return
	}
	if !up.isImage() {
		utils.Error(ctx, http.StatusBadRequest, 40033, "file must be an image")
		return
	}

	meta := models.PhotoMeta{
		DiscordUserID: strings.TrimSpace(ctx.PostForm(models.MetaDiscordUserID)),
		SubmittedAt:   strings.TrimSpace(ctx.PostForm(models.MetaSubmittedAt)),
		Date:          strings.TrimSpace(ctx.PostForm(models.MetaDate)),
		UserName:      utils.SanitizeName(ctx.PostForm(models.MetaUserName)),
	}
	if meta.DiscordUserID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40040, "discordUserId is required")
		return
	}
	if meta.SubmittedAt == "" {
		meta.SubmittedAt = models.FormatTimestamp(time.Now())
	}

	key := p.newKey()
	err := p.photos.Put(ctx.Request.Context(), key, bytes.NewReader(up.body), storage.PutOptions{
		ContentType: up.contentType,
		Metadata:    meta.Map(),
	})
	if err != nil {
		storageError(ctx, p.photos, key, err)
		return
	}
	utils.Success(ctx, gin.H{"key": key})
}

func (p *PhotoController) Delete(ctx *gin.Context) {
	deleteObject(ctx, p.photos, ctx.Param("id"))
}
