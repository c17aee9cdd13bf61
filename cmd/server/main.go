package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"surveyflow/internal/cache"
	"surveyflow/internal/config"
	"surveyflow/internal/logging"
	"surveyflow/internal/metrics"
	"surveyflow/internal/repository"
	"surveyflow/internal/repository/dynamo"
	"surveyflow/internal/service"
	"surveyflow/internal/transport/rest"
	"surveyflow/internal/transport/ws"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// @title surveyflow API
// @version 1.0
// @description Branching survey responses with classifier routing
// @host localhost:8080
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

type stores struct {
	surveys     repository.SurveyRepo
	submissions repository.SubmissionRepo
	close       func(context.Context)
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.StorageBackend {
	case config.StorageDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg)
		logger.Info("using DynamoDB storage",
			zap.String("region", cfg.AWSRegion),
			zap.String("surveysTable", cfg.SurveysTable),
			zap.String("submissionsTable", cfg.SubmissionsTable),
		)
		return &stores{
			surveys:     dynamo.NewSurveyRepo(client, cfg.SurveysTable, logger),
			submissions: dynamo.NewSubmissionRepo(client, cfg.SubmissionsTable, logger),
			close:       func(context.Context) {},
		}, nil

	default:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			return nil, fmt.Errorf("ping MongoDB: %w", err)
		}
		logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))

		db := client.Database(cfg.MongoDatabase)
		repository.EnsureIndexes(ctx, db, logger)
		return &stores{
			surveys:     repository.NewSurveyRepo(db),
			submissions: repository.NewSubmissionRepo(db),
			close: func(ctx context.Context) {
				if err := client.Disconnect(ctx); err != nil {
					logger.Warn("MongoDB disconnect failed", zap.Error(err))
				}
			},
		}, nil
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	redisOpts, err := redis.ParseURL(cfg.RedisURI)
	if err != nil {
		return fmt.Errorf("parse REDIS_URI: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping Redis: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", redisOpts.Addr))

	m := metrics.NewCollector("surveyflow")

	classifier, err := service.NewClassifierService(ctx, cfg.AI, m, logger)
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	logger.Info("classifier ready",
		zap.String("provider", classifier.Provider()),
		zap.Duration("timeout", cfg.AI.Timeout()),
	)

	hub := ws.NewHub(m, logger)

	authSvc := service.NewAuthService(service.AuthConfig{
		Username: cfg.OwnerUsername,
		Password: cfg.OwnerPassword,
		TenantID: cfg.OwnerTenantID,
		Secret:   cfg.JWTSecret,
	})
	surveySvc := service.NewSurveyService(st.surveys, logger)
	submissionSvc := service.NewSubmissionService(
		st.submissions,
		cache.NewSubmissionCache(rdb),
		hub,
		m,
		logger,
		service.SubmissionConfig{
			HoneypotField:   cfg.HoneypotField,
			MinFillDuration: cfg.MinFillDuration,
		},
	)
	responseSvc := service.NewResponseService(
		surveySvc,
		classifier,
		submissionSvc,
		cache.NewResponseCache(rdb, cfg.SessionTTL),
		hub,
		m,
		logger,
		cfg.AI.Timeout(),
	)
	statsSvc := service.NewStatsService(cache.NewStatsCache(rdb), logger)
	responseSvc.SetStats(statsSvc)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepIdle(sweepCtx, responseSvc, cfg.SessionTTL, logger)

	router := rest.NewRouter(&rest.Container{
		AuthService:       authSvc,
		SurveyService:     surveySvc,
		SubmissionService: submissionSvc,
		ResponseService:   responseSvc,
		StatsService:      statsSvc,
		WSHub:             hub,
		Metrics:           m,
		Logger:            logger,
		AllowedOrigins:    cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
			zap.String("storage", cfg.StorageBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	stopSweep()
	responseSvc.Shutdown()
	hub.Stop()

	logger.Info("server exited")
	return nil
}

// sweepIdle drops sessions untouched for a whole TTL from memory; their
// snapshots stay in Redis until they expire
func sweepIdle(ctx context.Context, svc *service.ResponseService, ttl time.Duration, logger *zap.Logger) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.Sweep(ttl); n > 0 {
				logger.Debug("idle response sessions swept", zap.Int("count", n), zap.Int("active", svc.Active()))
			}
		}
	}
}
