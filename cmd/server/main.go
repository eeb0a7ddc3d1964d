package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/Shivanshdarji/Code-Chronicles-sub000/config"
	"github.com/Shivanshdarji/Code-Chronicles-sub000/game"
	"github.com/Shivanshdarji/Code-Chronicles-sub000/logger"
	"github.com/Shivanshdarji/Code-Chronicles-sub000/metrics"
	"github.com/Shivanshdarji/Code-Chronicles-sub000/migrations"
	"github.com/Shivanshdarji/Code-Chronicles-sub000/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

// CreateServer mounts the public routes, then the origin filter that guards
// every route registered afterwards.
func CreateServer(allowedOrigins []string, metricsHandler http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger())
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.Debug, cfg.LogPretty)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Result recording is optional.
	var recorder game.ResultRecorder
	if cfg.PostgresURL != "" {
		if err := migrations.Migrate(cfg.PostgresURL); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		pgRepo, err := storage.NewPostgresRepo(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgRepo.Close()
		recorder = pgRepo
	} else {
		log.Warn().Msg("POSTGRES_URL not set, level results will not be recorded")
	}

	collector := metrics.NewCollector()
	idGen := game.NewIdGen()
	tickerGen := game.NewTickerGen()
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))

	registry := game.NewRegistry(idGen, rng, cfg.CodingSeconds)
	server := game.NewServer(registry, tickerGen, collector, recorder)

	serverStarted := make(chan struct{})
	go server.Run(ctx, serverStarted)
	<-serverStarted

	gameHandler := game.NewGameHandler(server, tickerGen, cfg.AllowedOrigins, cfg.MaxMessagesPerSecond)

	r := CreateServer(cfg.AllowedOrigins, collector.Handler())
	r.GET("/ws", gameHandler.WebsocketHandler)
	r.GET("/rooms/:id", gameHandler.RoomSnapshotHandler)

	httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	select {
	case <-server.Stopped():
	case <-shutdownCtx.Done():
		log.Warn().Msg("dispatcher did not stop in time")
	}
}
