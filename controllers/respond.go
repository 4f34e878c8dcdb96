package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/TuanDao2002/rmit-what-to-eat/errs"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto the {status, msg} contract. Errors
// outside the taxonomy become a generic 500 and are logged, never leaked.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	if e, ok := errs.As(err); ok {
		c.JSON(e.Status, gin.H{"msg": e.Message})
		return
	}
	if logger != nil {
		logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"msg": "Something went wrong, please try again later"})
}

func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, errs.BadRequest("Invalid id")
	}
	return uint(id), nil
}
