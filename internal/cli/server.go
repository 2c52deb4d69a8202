package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"quizroom/internal/app"
	"quizroom/internal/config"
	"quizroom/internal/infra/memory"
	redisstore "quizroom/internal/infra/redis"
	"quizroom/internal/logger"
	"quizroom/internal/metrics"
	transport "quizroom/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store app.SessionRepository = memory.NewSessionStore()
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:                  cfg.Redis.Addr,
			Password:              cfg.Redis.Password,
			DB:                    cfg.Redis.DB,
			DialTimeout:           time.Second,
			ContextTimeoutEnabled: true,
		})
		defer redisClient.Close()
		pingCtx, cancelPing := context.WithTimeout(ctx, time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable, code reservations are best effort", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancelPing()
		ttl := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)
		redisStore := redisstore.NewSessionStore(redisClient, ttl)
		go redisStore.KeepAlive(ctx, ttl/2)
		store = redisStore
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	service := app.NewQuizService(store, app.WithRecorder(m))
	if cfg.Seed.Path != "" {
		if err := seedQuizzes(ctx, service, cfg.Seed.Path, log); err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := transport.NewRouter(transport.NewHandler(service, log), transport.Options{
		JoinPerMinute:  cfg.Limits.JoinPerMinute,
		JoinBurst:      cfg.Limits.JoinBurst,
		TrustedProxies: cfg.Server.TrustedProxies,
		Metrics:        m,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting quiz server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	case err := <-serveErr:
		log.Error("failed to start server", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedQuizzes authors the quizzes listed in the seed file and logs their join codes.
func seedQuizzes(ctx context.Context, service *app.QuizService, path string, log *zap.Logger) error {
	drafts, err := config.LoadSeed(path)
	if err != nil {
		return err
	}
	for _, draft := range drafts {
		code, err := service.CreateQuiz(ctx, draft)
		if err != nil {
			return err
		}
		log.Info("seeded quiz", zap.String("code", code), zap.String("title", draft.Title))
	}
	return nil
}
