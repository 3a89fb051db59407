package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tandera.com/daypillar/internal/modules/pillar/dto"
	pillar "tandera.com/daypillar/internal/modules/pillar/service"
	commonDto "tandera.com/daypillar/pkg/dto"
	"tandera.com/daypillar/pkg/response"
	"tandera.com/daypillar/pkg/validator"
)

type PillarHandler struct {
	service pillar.PillarService
}

func NewPillarHandler(service pillar.PillarService) *PillarHandler {
	return &PillarHandler{service: service}
}

func (h *PillarHandler) CreatePillar(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreatePillarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.CreatePillar(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *PillarHandler) GetPillars(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	result, err := h.service.GetPillars(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *PillarHandler) UpdatePillar(c *gin.Context) {
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

	var req dto.UpdatePillarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.UpdatePillar(c.Request.Context(), userID, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *PillarHandler) DeletePillar(c *gin.Context) {
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

	if err := h.service.DeletePillar(c.Request.Context(), userID, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "pillar deleted successfully"})
}
