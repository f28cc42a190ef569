package handler

import (
	"io"
	"mime"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"medrag/internal/model"
	"medrag/internal/pkg/errcode"
	"medrag/internal/pkg/response"
	"medrag/internal/service"
)

const maxUploadBytes = 32 << 20

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if file.Size > maxUploadBytes {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}
	role := c.PostForm("role")
	if role == "" {
		response.Error(c, errcode.ErrInvalid, "role is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(io.LimitReader(opened, maxUploadBytes+1))
	if err != nil || len(data) > maxUploadBytes {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}
	doc, err := h.documents.Upload(c.Request.Context(), getUserID(c), file.Filename, role, data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	response.Success(c, gin.H{"items": docs})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	docID := c.Param("id")
	if docID == "" {
		response.Error(c, errcode.ErrInvalid, "id is required")
		return
	}
	if err := h.documents.Delete(c.Request.Context(), docID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": docID})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	docID := c.Param("id")
	if docID == "" {
		response.Error(c, errcode.ErrInvalid, "id is required")
		return
	}
	doc, file, err := h.documents.OpenFile(c.Request.Context(), docID)
	if err != nil {
		handleError(c, err)
		return
	}
	defer file.Close()
	contentType := mime.TypeByExtension(filepath.Ext(doc.Filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "attachment; filename=\""+doc.Filename+"\"")
	_, _ = io.Copy(c.Writer, file)
}
