package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/clients"
	apierrors "github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/errors"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
)

// AddressSource fetches one address level's children.
type AddressSource interface {
	AddressChildren(ctx context.Context, level models.AddressLevel, parentCode string) ([]models.Link, error)
}

// AddressHandler proxies the address hierarchy service for the manual
// cascading selection.
type AddressHandler struct {
	source AddressSource
}

// NewAddressHandler creates a new AddressHandler instance.
func NewAddressHandler(source AddressSource) *AddressHandler {
	return &AddressHandler{source: source}
}

// Children handles GET /api/v1/addresses/:level. The parent query
// parameter carries the selected parent link's code; the city level takes
// none.
func (h *AddressHandler) Children(c *gin.Context) {
	level, ok := models.ParseAddressLevel(c.Param("level"))
	if !ok {
		apierrors.BadRequest(c, "unknown address level", map[string]interface{}{
			"level": c.Param("level"),
		})
		return
	}

	parent := c.Query("parent")
	if level != models.LevelCity && parent == "" {
		apierrors.BadRequest(c, "parent is required below the city level", nil)
		return
	}

	links, err := h.source.AddressChildren(c.Request.Context(), level, parent)
	if err != nil {
		var reqErr *clients.RequestError
		if errors.As(err, &reqErr) {
			apierrors.UpstreamError(c, reqErr.Message)
			return
		}
		apierrors.InternalServerError(c, "address lookup failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": links})
}
