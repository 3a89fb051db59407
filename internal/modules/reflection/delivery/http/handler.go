package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tandera.com/daypillar/internal/modules/reflection/dto"
	reflection "tandera.com/daypillar/internal/modules/reflection/service"
	commonDto "tandera.com/daypillar/pkg/dto"
	"tandera.com/daypillar/pkg/response"
	"tandera.com/daypillar/pkg/validator"
)

type ReflectionHandler struct {
	service reflection.ReflectionService
}

func NewReflectionHandler(service reflection.ReflectionService) *ReflectionHandler {
	return &ReflectionHandler{service: service}
}

func (h *ReflectionHandler) CreateReflection(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateReflectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.CreateReflection(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *ReflectionHandler) GetReflections(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	dateStr := c.Query("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	result, err := h.service.GetReflectionsForDate(c.Request.Context(), userID, date)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *ReflectionHandler) DeleteReflection(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri commonDto.IDUriRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}
	id, _ := uuid.Parse(uri.ID)

	if err := h.service.DeleteReflection(c.Request.Context(), userID, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "reflection deleted successfully"})
}
