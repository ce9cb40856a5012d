package api

import (
	"github.com/anon-comments-api/internal/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError writes err as {"error", "kind"} with the mapped status.
// Internal causes stay in the logs.
func respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	c.JSON(apperror.HTTPStatus(kind), gin.H{
		"error": apperror.PublicMessage(err),
		"kind":  kind,
	})
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
