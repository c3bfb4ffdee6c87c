package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"goblog/internal/config"
	apphttp "goblog/internal/http"
	"goblog/internal/mailer"
	"goblog/internal/repository"
	"goblog/internal/repository/postgres"
	"goblog/internal/repository/sqlite"
	"goblog/internal/service"
	"goblog/internal/storage"
	"goblog/internal/token"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.App.SecretKey) == "" {
		logger.Fatalf("SECRET_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, userRepo, postRepo, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := postRepo.Init(ctx); err != nil {
		logger.Fatalf("init post repository: %v", err)
	}

	tokens := token.NewManager(cfg.App.SecretKey)

	var resetMailer service.ResetMailer
	if cfg.Mail.Username != "" && cfg.Mail.Password != "" {
		resetMailer = mailer.New(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.Sender)
	} else {
		logger.Warn("EMAIL_USER/EMAIL_PASS not set, password reset emails disabled")
	}

	userService := service.NewUserService(
		userRepo,
		tokens,
		resetMailer,
		cfg.App.BaseURL,
		time.Duration(cfg.Auth.ResetTTLMinutes)*time.Minute,
	)
	postService := service.NewPostService(userRepo, postRepo)

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		userService,
		postService,
		tokens,
		storageSvc,
		time.Duration(cfg.Auth.SessionTTLMinutes)*time.Minute,
		time.Duration(cfg.Auth.RememberTTLHours)*time.Hour,
		logger,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

// openDatabase prefers Postgres when POSTGRES_URL is set and falls back to a
// local sqlite file otherwise.
func openDatabase(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*sql.DB, repository.UserRepository, repository.PostRepository, error) {
	if cfg.Database.PostgresURL != "" {
		db, err := postgres.Open(ctx, cfg.Database.PostgresURL)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using postgres database")
		return db, postgres.NewUserRepository(db), postgres.NewPostRepository(db), nil
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Infof("using sqlite database at %s", cfg.Database.Path)
	return db, sqlite.NewUserRepository(db), sqlite.NewPostRepository(db), nil
}

// buildStorage picks the profile-picture backend: the HTTP blob store when a
// token is configured, S3 when a bucket is, nil otherwise (uploads will be
// rejected with a configuration notice).
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.BlobToken != "" {
		client, err := storage.NewBlobClient(cfg.Storage.BlobEndpoint, cfg.Storage.BlobToken)
		if err != nil {
			return nil, err
		}
		logger.Info("using blob store for profile pictures")
		return client, nil
	}

	if cfg.Storage.Bucket == "" {
		logger.Warn("no blob token or bucket configured, profile picture uploads disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.Endpoint), nil
}
