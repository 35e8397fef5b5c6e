package main

import (
	"context"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/matchfit/matchfit/config"
	"github.com/matchfit/matchfit/internal/api/handlers"
	"github.com/matchfit/matchfit/internal/api/routes"
	"github.com/matchfit/matchfit/internal/cache"
	"github.com/matchfit/matchfit/internal/logger"
	"github.com/matchfit/matchfit/internal/providers/llm"
	pgrepo "github.com/matchfit/matchfit/internal/repositories/postgres"
	"github.com/matchfit/matchfit/internal/services"
	"github.com/matchfit/matchfit/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	ctx := context.Background()

	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	log.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	log.Info("Redis connected")

	provider, err := llm.NewFromEnv(ctx)
	if err != nil {
		log.WithError(err).Fatal("LLM provider init error")
	}
	defer provider.Close()

	// Repositories
	overviewRepo := pgrepo.NewOverviewCacheRepo(config.PostgresDB)
	matchRepo := pgrepo.NewMatchCacheRepo(config.PostgresDB)
	profileRepo := pgrepo.NewClientProfileRepo(config.PostgresDB)
	expertRepo := pgrepo.NewExpertRepo(config.PostgresDB)

	// Services
	hot := cache.NewRedisCache(config.RedisClient)
	matchCache := services.NewMatchCacheService(overviewRepo, matchRepo, hot, log)
	overviewSvc := services.NewOverviewService(provider, matchCache, log)
	scorer := services.NewMatchScorer(provider)
	orch := services.NewMatchOrchestrator(expertRepo, scorer, matchCache, services.DefaultOrchestratorConfig(), log)
	intakeSvc := services.NewIntakeService(profileRepo)

	// Background workers
	var warm *workers.WarmCachePool
	if strings.EqualFold(os.Getenv("WARM_CACHE_ENABLED"), "true") {
		warm = &workers.WarmCachePool{
			Redis:    config.RedisClient,
			Overview: overviewSvc,
			Orch:     orch,
			Logger:   log,
		}
		if err := warm.Start(ctx); err != nil {
			log.WithError(err).Fatal("warm-cache worker init error")
		}
	}

	janitor := &workers.CacheJanitor{Cache: matchCache, Logger: log}
	janitor.Start(ctx)

	// HTTP
	r := gin.New()
	r.Use(gin.Recovery())

	var warmQueue handlers.WarmCacheQueue
	if warm != nil {
		warmQueue = warm
	}

	routes.RegisterRoutes(r, routes.Deps{
		Matching: handlers.NewMatchingHandler(overviewSvc, orch, warmQueue, log),
		Client:   handlers.NewClientHandler(intakeSvc),
		Logger:   log,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
