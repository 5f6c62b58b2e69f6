package api

import (
	"errors"
	"log"
	"net/http"

	customerrors "github.com/axellelanca/clickstream/internal/errors"
	"github.com/axellelanca/clickstream/internal/metrics"
	"github.com/axellelanca/clickstream/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteConfig carries what the routes need besides the services.
type RouteConfig struct {
	// BaseURL prefixes generated short links; empty means "scheme://host" of the request.
	BaseURL string
	// JWTSecret verifies owner tokens on /api/v1 routes.
	JWTSecret []byte
	// CreateLimiter throttles link creation; nil disables rate limiting.
	CreateLimiter gin.HandlerFunc
}

// SetupRoutes configures all Gin API routes and injects necessary dependencies
func SetupRoutes(router *gin.Engine, linkService *services.LinkService, analyticsService *services.AnalyticsService, cfg RouteConfig) {
	router.Use(metrics.Middleware())

	// Health Check Route - used for monitoring service availability
	router.GET("/health", HealthCheckHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API Routes Group - all owner endpoints under /api/v1 prefix
	api := router.Group("/api/v1", AuthMiddleware(cfg.JWTSecret))
	{
		create := []gin.HandlerFunc{CreateShortLinkHandler(linkService, cfg.BaseURL)}
		if cfg.CreateLimiter != nil {
			create = append([]gin.HandlerFunc{cfg.CreateLimiter}, create...)
		}
		api.POST("/links", create...)
		api.GET("/links/:shortCode/analytics", GetLinkAnalyticsHandler(analyticsService))
	}

	// Redirection Route - handles the actual URL redirection at root level
	router.GET("/:shortCode", RedirectHandler(linkService))
}

// HealthCheckHandler handles the /health route to verify service status
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateLinkRequest represents the JSON request body for creating a link
type CreateLinkRequest struct {
	URL string `json:"url" binding:"required"`
}

// CreateLinkResponse represents the response for a link creation
type CreateLinkResponse struct {
	ShortCode string `json:"short_code"`
	LongURL   string `json:"long_url"`
	ShortURL  string `json:"short_url"`
}

// CreateShortLinkHandler shortens the URL in the body on behalf of the authenticated owner
func CreateShortLinkHandler(linkService *services.LinkService, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		link, err := linkService.Shorten(c.Request.Context(), req.URL, OwnerID(c))
		if err != nil {
			writeError(c, err)
			return
		}

		base := baseURL
		if base == "" {
			base = requestBaseURL(c)
		}
		c.JSON(http.StatusCreated, CreateLinkResponse{
			ShortCode: link.ShortCode,
			LongURL:   link.OriginalURL,
			ShortURL:  services.ShortURL(base, link.ShortCode),
		})
	}
}

// RedirectHandler handles the redirection from a short URL to the original long URL.
// Click tracking happens asynchronously and never delays the redirect.
func RedirectHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Param("shortCode")

		destination, err := linkService.Redirect(c.Request.Context(), shortCode, c.ClientIP())
		if err != nil {
			writeError(c, err)
			return
		}

		c.Redirect(http.StatusFound, destination)
	}
}

// GetLinkAnalyticsHandler returns the click analytics of a link owned by the caller
func GetLinkAnalyticsHandler(analyticsService *services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Param("shortCode")

		analytics, err := analyticsService.GetAnalytics(c.Request.Context(), shortCode, OwnerID(c))
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, analytics)
	}
}

// writeError maps domain errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, customerrors.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL: only absolute http and https URLs can be shortened"})
	case errors.Is(err, customerrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	case errors.Is(err, customerrors.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": "URL quota exceeded"})
	case errors.Is(err, customerrors.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, customerrors.ErrShortCodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Short URL not found"})
	case errors.Is(err, customerrors.ErrShortCodeGenerationFailed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Unable to generate unique short code. Please try again later."})
	default:
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// requestBaseURL rebuilds "scheme://host" from the incoming request.
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
