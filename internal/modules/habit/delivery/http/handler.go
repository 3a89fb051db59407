package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tandera.com/daypillar/internal/modules/habit/dto"
	habit "tandera.com/daypillar/internal/modules/habit/service"
	commonDto "tandera.com/daypillar/pkg/dto"
	"tandera.com/daypillar/pkg/response"
	"tandera.com/daypillar/pkg/validator"
)

type HabitHandler struct {
	service habit.HabitService
}

func NewHabitHandler(service habit.HabitService) *HabitHandler {
	return &HabitHandler{service: service}
}

func (h *HabitHandler) CreateHabit(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.CreateHabit(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *HabitHandler) GetHabits(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	activeOnly := c.Query("active_only") == "true"

	result, err := h.service.GetHabits(c.Request.Context(), userID, activeOnly)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *HabitHandler) UpdateHabit(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, ok := bindID(c)
	if !ok {
		return
	}

	var req dto.UpdateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.UpdateHabit(c.Request.Context(), userID, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *HabitHandler) DeleteHabit(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, ok := bindID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteHabit(c.Request.Context(), userID, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "habit deleted successfully"})
}

func (h *HabitHandler) SetLogStatus(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, ok := bindID(c)
	if !ok {
		return
	}

	var req dto.SetLogStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.service.SetLogStatus(c.Request.Context(), userID, id, req)
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
