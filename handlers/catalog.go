package handlers

import (
	"net/http"
	"strings"

	"github.com/Rohit420bhainwal/book-my-event-api/services/catalog"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxImageSize bounds a single listing image upload.
const maxImageSize = 5 << 20

type CatalogHandler struct {
	Service catalog.CatalogService
}

// CreateService handles POST /services.
func (h *CatalogHandler) CreateService(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req catalog.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	svc, err := h.Service.Create(c.Request.Context(), p.UserID, req)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "Service created", svc)
}

// GetService handles GET /services/:id.
func (h *CatalogHandler) GetService(c *gin.Context) {
	svc, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Service fetched", svc)
}

// UploadImage handles POST /services/:id/images with a multipart "image" field.
func (h *CatalogHandler) UploadImage(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		fail(c, utils.NewValidationError("image not provided"))
		return
	}
	if fileHeader.Size > maxImageSize {
		fail(c, utils.NewValidationError("image exceeds %d bytes", maxImageSize))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		fail(c, utils.NewInternalError(err, "failed to read upload"))
		return
	}
	defer f.Close()

	svc, err := h.Service.AddImage(c.Request.Context(), p.UserID, c.Param("id"), f, fileHeader.Filename)
	if err != nil {
		fail(c, err)
		return
	}
	getLogger(c).Info("service image uploaded", zap.String("serviceId", svc.ID))
	utils.RespondOK(c, http.StatusCreated, "Image uploaded", svc)
}

// DeleteImage handles DELETE /services/:id/images/*filename. Stored names
// carry folder segments, hence the wildcard.
func (h *CatalogHandler) DeleteImage(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	svc, err := h.Service.RemoveImage(c.Request.Context(), p.UserID, c.Param("id"), strings.TrimPrefix(c.Param("filename"), "/"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Image deleted", svc)
}
