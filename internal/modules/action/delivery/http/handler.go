package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tandera.com/daypillar/internal/modules/action/dto"
	action "tandera.com/daypillar/internal/modules/action/service"
	commonDto "tandera.com/daypillar/pkg/dto"
	"tandera.com/daypillar/pkg/response"
	"tandera.com/daypillar/pkg/validator"
)

type ActionHandler struct {
	service action.ActionService
}

func NewActionHandler(service action.ActionService) *ActionHandler {
	return &ActionHandler{service: service}
}

func (h *ActionHandler) CreateAction(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.CreateAction(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *ActionHandler) GetAction(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, ok := bindID(c)
	if !ok {
		return
	}

	result, err := h.service.GetAction(c.Request.Context(), userID, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ActionHandler) ListActions(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var filter dto.ListActionsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.ListActions(c.Request.Context(), userID, filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ActionHandler) SearchActions(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var filter dto.SearchActionsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.SearchActions(c.Request.Context(), userID, filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ActionHandler) UpdateAction(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, ok := bindID(c)
	if !ok {
		return
	}

	var req dto.UpdateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.UpdateAction(c.Request.Context(), userID, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ActionHandler) DeleteAction(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, ok := bindID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteAction(c.Request.Context(), userID, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "action deleted successfully"})
}

func (h *ActionHandler) CompleteAction(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, ok := bindID(c)
	if !ok {
		return
	}

	result, err := h.service.CompleteAction(c.Request.Context(), userID, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ActionHandler) UncompleteAction(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, ok := bindID(c)
	if !ok {
		return
	}

	result, err := h.service.UncompleteAction(c.Request.Context(), userID, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func bindID(c *gin.Context) (uuid.UUID, bool) {
	var uri commonDto.IDUriRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return uuid.Nil, false
	}

	id, err := uuid.Parse(uri.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return uuid.Nil, false
	}
	return id, true
}
