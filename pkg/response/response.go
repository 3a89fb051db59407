package response

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tandera.com/daypillar/pkg/apperror"
)

// GetUserID resolves the acting user from the X-User-ID header set by the
// upstream gateway. Authentication is handled there.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	return parseUserID(c.GetHeader("X-User-ID"))
}

// GetUserIDAllowQuery additionally accepts a user_id query parameter. Only
// the websocket endpoint uses this: browser websocket clients cannot set
// headers on the upgrade request.
func GetUserIDAllowQuery(c *gin.Context) (uuid.UUID, error) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		raw = c.Query("user_id")
	}
	return parseUserID(raw)
}

func parseUserID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, apperror.ErrBadRequest
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.ErrBadRequest
	}

	return userID, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
