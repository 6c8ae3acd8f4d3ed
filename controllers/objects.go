package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/frypillows/storage"
	"github.com/cppla/frypillows/utils"
)

// upload is a multipart file read fully into memory.
type upload struct {
	body        []byte
	contentType string
}

// readUpload reads the "file" part, enforcing maxBytes. It writes the error
// response itself and reports false on failure.
func readUpload(ctx *gin.Context, maxBytes int64) (*upload, bool) {
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return nil, false
	}
	defer file.Close()

	tooLarge := fmt.Sprintf("file size exceeds %dMB", maxBytes>>20)
	if header.Size > maxBytes {
		utils.Error(ctx, http.StatusBadRequest, 40032, tooLarge)
		return nil, false
	}
	body, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to read file")
		return nil, false
	}
	if int64(len(body)) > maxBytes {
		utils.Error(ctx, http.StatusBadRequest, 40032, tooLarge)
		return nil, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(body)
	}
	return &upload{body: body, contentType: contentType}, true
}

func (u *upload) isImage() bool {
	return strings.HasPrefix(u.contentType, "image/")
}

// serveBlob streams the object payload with its stored content type.
func serveBlob(ctx *gin.Context, store storage.Store, key string) {
	obj, body, err := store.Get(ctx.Request.Context(), key)
	if err != nil {
		storageError(ctx, store, key, err)
		return
	}
	utils.Blob(ctx, obj.ContentType, body)
}

// headObject fetches object metadata, writing the error response on failure.
func headObject(ctx *gin.Context, store storage.Store, key string) (*storage.Object, bool) {
	obj, err := store.Head(ctx.Request.Context(), key)
	if err != nil {
		storageError(ctx, store, key, err)
		return nil, false
	}
	return obj, true
}

func deleteObject(ctx *gin.Context, store storage.Store, key string) {
	if _, ok := headObject(ctx, store, key); !ok {
		return
	}
	if err := store.Delete(ctx.Request.Context(), key); err != nil {
		storageError(ctx, store, key, err)
		return
	}
	utils.Success(ctx, gin.H{"key": key, "deleted": true})
}

func storageError(ctx *gin.Context, store storage.Store, key string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40400, "object not found")
		return
	}
	utils.Sugar.Errorf("storage bucket=%s key=%s: %v", store.Name(), key, err)
	utils.Error(ctx, http.StatusInternalServerError, 50030, "storage unavailable")
}
