package handlers

import (
	"net/http"

	"github.com/Dhoini/affiliate-service/internal/middleware"
	"github.com/Dhoini/affiliate-service/pkg/res"
	"github.com/gin-gonic/gin"
)

// CreateLink POST /affiliate/links
func (h *AffiliateHandler) CreateLink(c *gin.Context) {
	link, created, err := h.service.CreateLink(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, h.log)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	res.JsonResponse(c, gin.H{"success": true, "link": link}, status)
}

// ListMyLinks GET /affiliate/links
func (h *AffiliateHandler) ListMyLinks(c *gin.Context) {
	links, err := h.service.ListMyLinks(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	res.JsonResponse(c, gin.H{"success": true, "links": links}, http.StatusOK)
}

// LinkStats GET /affiliate/links/:code/stats
func (h *AffiliateHandler) LinkStats(c *gin.Context) {
	stats, err := h.service.LinkStats(c.Request.Context(), middleware.UserID(c), c.Param("code"))
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	res.JsonResponse(c, gin.H{"success": true, "stats": stats}, http.StatusOK)
}

// RecordClick POST /affiliate/links/:code/click, без аутентификации
func (h *AffiliateHandler) RecordClick(c *gin.Context) {
	if err := h.service.RecordClick(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, err, h.log)
		return
	}
	res.JsonResponse(c, gin.H{"success": true}, http.StatusOK)
}
