package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"secretdrop/internal/config"
	"secretdrop/internal/domain"
	"secretdrop/internal/observability/logging"
	"secretdrop/internal/observability/metrics"
	"secretdrop/internal/service"
	"secretdrop/internal/store"
	httptransport "secretdrop/internal/transport/http"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "secretdrop",
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	slog.SetDefault(logger)

	logger.Info("starting service")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load", "error", err)
		os.Exit(1)
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}

	if err := gdb.AutoMigrate(&domain.User{}, &domain.Secret{}, &domain.AccessLog{}); err != nil {
		logger.Error("automigrate", "error", err)
		os.Exit(1)
	}

	metrics.MustRegister("secretdrop")

	st := store.New(gdb)

	tokens := service.NewTokens(service.TokenConfig{
		Issuer:     cfg.Issuer,
		AccessTTL:  cfg.AccessTTL,
		SigningKey: []byte(cfg.SigningKey),
	})
	auth := service.NewAuth(st, tokens, service.AuthConfig{
		BcryptCost:        cfg.BcryptCost,
		MinPasswordLength: cfg.MinPasswordLength,
	})
	secrets := service.NewSecrets(st, service.SecretsConfig{
		TokenLength: cfg.TokenLength,
		BcryptCost:  cfg.BcryptCost,
	})

	h := httptransport.NewHandler(auth, secrets, cfg.BaseURL)
	mux := httptransport.NewRouter(h, tokens, cfg.RateLimit)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("secretdrop listening", "addr", srv.Addr, "issuer", cfg.Issuer)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
