package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
)

type ShortLinkHandler struct {
	links service.IShortLinkService
}

func NewShortLinkHandler(links service.IShortLinkService) *ShortLinkHandler {
	return &ShortLinkHandler{links: links}
}

// RegisterRoutes mounts /s/:code/ outside the /api prefix.
func (h *ShortLinkHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/s/:code/", h.Redirect)
}

func (h *ShortLinkHandler) Redirect(c *gin.Context) {
	target, err := h.links.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Redirect(http.StatusFound, target)
}
