package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lnbits/chat/internal/middleware"
	"github.com/lnbits/chat/internal/service"
	"github.com/lnbits/chat/pkg/model"
)

type CategoryHandler struct {
	service *service.CategoryService
}

func NewCategoryHandler(service *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// GetPublic serves the viewer-facing category projection. No auth.
func (h *CategoryHandler) GetPublic(c *gin.Context) {
	category, err := h.service.GetPublic(c.Request.Context(), c.Param("categories_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(category))
}

func (h *CategoryHandler) Create(c *gin.Context) {
	user, ok := middleware.UserFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	var req model.CreateCategory
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	category, err := h.service.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.NewSuccessResponse(category))
}

func (h *CategoryHandler) Update(c *gin.Context) {
	user, ok := middleware.UserFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	var req model.CreateCategory
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	category, err := h.service.Update(c.Request.Context(), user.ID, c.Param("categories_id"), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(category))
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	user, ok := middleware.UserFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), user.ID, c.Param("categories_id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{"deleted": true}))
}
