package handlers

import (
	"net/http"

	"decktrack/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Track   *TrackHandlers
	Stats   *StatsHandlers
	Catalog *CatalogHandlers

	FrontendOrigin string
	JWTSecret      string
	APIKey         string
}

// NewRouter mounts the public viewer routes and the guarded operator routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(middleware.CORSMiddleware(cfg.FrontendOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		track := api.Group("/track")
		{
			track.POST("", cfg.Track.Track)
			track.POST("/open", cfg.Track.Open)
			track.POST("/stay", cfg.Track.Stay)
			track.POST("/complete", cfg.Track.Complete)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(cfg.JWTSecret, cfg.APIKey))
		{
			stats := protected.Group("/stats")
			{
				stats.GET("/summary", cfg.Stats.Summary)
				stats.GET("/timeline", cfg.Stats.Timeline)
				stats.GET("/average-dwell", cfg.Stats.AverageDwell)
				stats.GET("/top-slides", cfg.Stats.TopSlides)
				stats.GET("/:token", cfg.Stats.TokenDetail)
			}

			protected.GET("/presentations", cfg.Stats.Presentations)
			protected.POST("/presentations", cfg.Catalog.CreatePresentation)
			protected.PUT("/presentations/:id", cfg.Catalog.UpdatePresentation)
			protected.DELETE("/presentations/:id", cfg.Catalog.DeletePresentation)

			protected.GET("/clients", cfg.Catalog.ListClients)
			protected.POST("/clients", cfg.Catalog.CreateClient)
			protected.PUT("/clients/:id", cfg.Catalog.UpdateClient)
			protected.DELETE("/clients/:id", cfg.Catalog.DeleteClient)
		}
	}

	return r
}
