package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// pathID parses a numeric path parameter. Anything else is reported as not found.
func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.DetailError{Kind: service.ErrNotFound, Detail: "not found"}
	}
	return uint(id), nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, middleware.BadRequest("invalid " + name)
	}
	return n, nil
}

// queryBool accepts 1/0 and true/false.
func queryBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}

func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return middleware.BadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// currentActor must only be called behind AuthMiddleware.
func currentActor(c *gin.Context) service.Actor {
	id, _ := middleware.UserID(c)
	return service.Actor{ID: id, IsStaff: middleware.IsStaff(c)}
}
