package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	day "tandera.com/daypillar/internal/modules/day/service"
	commonDto "tandera.com/daypillar/pkg/dto"
	"tandera.com/daypillar/pkg/response"
)

type DayHandler struct {
	service day.DayService
}

func NewDayHandler(service day.DayService) *DayHandler {
	return &DayHandler{service: service}
}

func (h *DayHandler) GetDaySummary(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri commonDto.DateUriRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	date, err := time.Parse("2006-01-02", uri.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	result, err := h.service.GetDaySummary(c.Request.Context(), userID, date)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
