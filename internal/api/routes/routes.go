package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/matchfit/matchfit/internal/api/handlers"
	"github.com/matchfit/matchfit/internal/api/middleware"
)

type Deps struct {
	Matching *handlers.MatchingHandler
	Client   *handlers.ClientHandler
	Logger   *logrus.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	if d.Logger != nil {
		r.Use(middleware.RequestLogger(d.Logger))
	}

	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/clients", d.Client.Submit)
	r.GET("/clients/:client_id", d.Client.Get)

	r.POST("/matching/overview", d.Matching.Overview)
	r.POST("/matching/overview/stream", d.Matching.OverviewStream)
	r.POST("/matching/experts", d.Matching.Experts)
	r.POST("/matching/experts/stream", d.Matching.ExpertsStream)
	r.POST("/matching/warm-cache", d.Matching.WarmCache)
}
