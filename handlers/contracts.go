package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tourcraft/tourcraft/internal/apperr"
	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/service"
	"github.com/tourcraft/tourcraft/internal/storage"
	"github.com/tourcraft/tourcraft/pkg/logger"
)

// MaxContractSize bounds uploaded contract documents.
const MaxContractSize = 20 << 20

// ContractHandler stores the signed document of a contrat in blob storage
// and records its key on the contrat. The document is deleted with its contrat.
type ContractHandler struct {
	contrats *service.Accessor
	blobs    storage.Blobs
}

func NewContractHandler(contrats *service.Accessor, blobs storage.Blobs) *ContractHandler {
	h := &ContractHandler{contrats: contrats, blobs: blobs}
	contrats.OnRemove(h.removeDocument)
	return h
}

func (h *ContractHandler) removeDocument(ctx context.Context, _ entity.Schema, removed entity.Record) {
	key := removed.String("documentKey")
	if key == "" {
		return
	}
	if err := h.blobs.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Warnf("remove document %s of deleted contrat: %v", key, err)
		return
	}
	logger.Debugf("removed document %s with its contrat", key)
}

// Register mounts PUT and GET /contracts/:id/document.
func (h *ContractHandler) Register(rg gin.IRouter) {
	rg.PUT("/contracts/:id/document", h.upload)
	rg.GET("/contracts/:id/document", h.download)
}

// upload accepts a multipart "file" field.
func (h *ContractHandler) upload(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	rec, err := h.contrats.Get(ctx, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if rec == nil {
		apperr.Respond(c, apperr.NotFound(entity.Contrats, id))
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		apperr.Respond(c, apperr.BadRequest("multipart field \"file\" is required"))
		return
	}
	if fh.Size > MaxContractSize {
		apperr.Respond(c, apperr.BadRequest("document exceeds "+strconv.Itoa(MaxContractSize>>20)+" MiB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		apperr.Respond(c, apperr.BadRequest(err.Error()))
		return
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	key := storage.ContractKey(id, fh.Filename)
	if err := h.blobs.Put(ctx, key, f, fh.Size, contentType); err != nil {
		apperr.Respond(c, apperr.StoreOperation("put document", err))
		return
	}
	if old := rec.String("documentKey"); old != "" && old != key {
		if err := h.blobs.Delete(ctx, old); err != nil {
			logger.Warnf("remove previous document %s: %v", old, err)
		}
	}
	if err := h.contrats.Update(ctx, id, entity.Record{"documentKey": key}); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "documentKey": key, "size": fh.Size})
}

func (h *ContractHandler) download(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	rec, err := h.contrats.Get(ctx, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if rec == nil || rec.String("documentKey") == "" {
		apperr.Respond(c, apperr.NotFound(entity.Contrats+"/document", id))
		return
	}
	rc, info, err := h.blobs.Get(ctx, rec.String("documentKey"))
	if errors.Is(err, storage.ErrNotFound) {
		apperr.Respond(c, apperr.NotFound(entity.Contrats+"/document", id))
		return
	}
	if err != nil {
		apperr.Respond(c, apperr.StoreOperation("get document", err))
		return
	}
	defer rc.Close()
	c.Header("Content-Type", info.ContentType)
	if info.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		logger.Warnf("stream document %s: %v", id, err)
	}
}
