package handlers

import (
	"errors"
	"net/http"

	"decktrack/api/logging"
	"decktrack/api/models"
	"decktrack/api/store"

	"github.com/gin-gonic/gin"
)

// CatalogHandlers manage clients and presentations. The enriched presentation
// list lives in StatsHandlers.
type CatalogHandlers struct {
	Catalog store.Catalog
}

func NewCatalogHandlers(c store.Catalog) *CatalogHandlers {
	return &CatalogHandlers{Catalog: c}
}

func (h *CatalogHandlers) ListClients(c *gin.Context) {
	clients, err := h.Catalog.ListClients(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to retrieve clients")
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (h *CatalogHandlers) CreateClient(c *gin.Context) {
	var req models.Client
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := h.Catalog.CreateClient(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Failed to create client")
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *CatalogHandlers) UpdateClient(c *gin.Context) {
	var req models.Client
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := h.Catalog.UpdateClient(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err, "Failed to update client")
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *CatalogHandlers) DeleteClient(c *gin.Context) {
	if err := h.Catalog.DeleteClient(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Failed to delete client")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandlers) CreatePresentation(c *gin.Context) {
	var req models.PresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.Catalog.CreatePresentation(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Failed to create presentation")
		return
	}
	logging.Info().Str("presentation_id", p.ID).Str("token", p.Token).Msg("presentation created")
	c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandlers) UpdatePresentation(c *gin.Context) {
	var req models.PresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.Catalog.UpdatePresentation(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err, "Failed to update presentation")
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeletePresentation removes the catalog entry only. Its access log is kept.
func (h *CatalogHandlers) DeletePresentation(c *gin.Context) {
	if err := h.Catalog.DeletePresentation(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Failed to delete presentation")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandlers) fail(c *gin.Context, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	logging.Error().Err(err).Str("path", c.FullPath()).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
