package comics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"comixie/internal/pdf"
)

type Handler struct {
	Service  *Service
	Composer *pdf.Composer
}

func NewHandler(svc *Service, composer *pdf.Composer) *Handler {
	return &Handler{Service: svc, Composer: composer}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
	rg.GET("/genres", h.genres)
	rg.GET("/genre/:name/comics", h.comicsByGenre)
	rg.GET("/details/*slug", h.details)
	rg.GET("/read/*slug", h.read)
	rg.POST("/export-pdf/*slug", h.exportPDF)
	rg.GET("/home", h.home)
	rg.GET("/health", h.health)
}

func (h *Handler) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter is required"})
		return
	}

	results, err := h.Service.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":         query,
		"total_results": len(results),
		"results":       results,
	})
}

func (h *Handler) genres(c *gin.Context) {
	names, err := h.Service.Genres(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list genres: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, names)
}

func (h *Handler) comicsByGenre(c *gin.Context) {
	page := parseInt(c.Query("page"), 1)
	perPage := parseInt(c.Query("per_page"), 10)

	result, err := h.Service.ComicsByGenre(c.Request.Context(), c.Param("name"), page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list comics: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) details(c *gin.Context) {
	slug := strings.Trim(c.Param("slug"), "/")
	if slug == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "comic not found"})
		return
	}

	detail, err := h.Service.Detail(c.Request.Context(), slug)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "comic not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get details: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) read(c *gin.Context) {
	slug := strings.Trim(c.Param("slug"), "/")
	if slug == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
		return
	}

	ch, err := h.Service.Read(c.Request.Context(), slug)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read chapter: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"chapter_slug": ch.Slug,
		"chapter_url":  ch.URL,
		"total_pages":  len(ch.Images),
		"image_urls":   ch.Images,
	})
}

func (h *Handler) exportPDF(c *gin.Context) {
	slug := strings.Trim(c.Param("slug"), "/")
	if slug == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
		return
	}

	ch, err := h.Service.Read(c.Request.Context(), slug)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "PDF export failed: " + err.Error()})
		return
	}
	if len(ch.Images) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No images found"})
		return
	}

	data, err := h.Composer.Compose(c.Request.Context(), ch.Images)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "PDF export failed: " + err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, slug))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *Handler) home(c *gin.Context) {
	page := parseInt(c.Query("page"), 1)

	listing, err := h.Service.Home(c.Request.Context(), page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get home page: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Comic API is running"})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
