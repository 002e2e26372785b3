package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"Kasumi/server/internal/api/gateway"
	"Kasumi/server/internal/config"
	"Kasumi/server/internal/pkg/galois"
	"Kasumi/server/internal/pkg/helpers"
	"Kasumi/server/internal/services/auth"
	"Kasumi/server/internal/services/cipher"
	"Kasumi/server/internal/storage"
)

func main() {
	if err := run(); err != nil {
		newErr := errors.Wrap(err, 0)
		log.Fatal(newErr.ErrorStack())
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	helpers.ConfigureLogging(cfg.Log.Level, cfg.Log.Format)
	logger := helpers.NewLogger("Main")
	logger.Infof("Configuration loaded:%s", cfg)

	db, err := connect(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}
	logger.Info("Database schema initialized")

	// Load the field or search for one on first start
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	field, err := galois.Ensure(ctx, db, cfg.Field.Degree, rand.New(rand.NewSource(time.Now().UnixNano())))
	cancel()
	if err != nil {
		return err
	}
	params := field.Parameters()
	logger.Infof("Using GF(2^%d) with polynomial 0x%x and generator 0x%x", params.Degree, params.Polynomial, params.Generator)

	authService := auth.New(cfg.JWT.Secret, time.Duration(cfg.JWT.TTLHours)*time.Hour, db)
	cipherService, err := cipher.NewService(field, db)
	if err != nil {
		return err
	}

	gatewayServer := gateway.New(
		fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		authService,
		cipherService,
		gateway.WithFieldStore(db),
		gateway.WithOperations(db),
	)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gatewayServer.Start(runCtx); err != nil {
		return fmt.Errorf("gateway server failed: %w", err)
	}
	logger.Info("Gateway stopped")
	return nil
}

// connect opens the database, retrying while it starts up
func connect(cfg *config.Config, logger *logrus.Entry) (*storage.DB, error) {
	dbConfig := storage.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	}

	maxRetries := 30
	retryDelay := 2 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err := storage.New(dbConfig)
		if err == nil {
			logger.Infof("Connected to database (attempt %d)", attempt)
			return db, nil
		}
		lastErr = err

		if attempt < maxRetries {
			logger.Warnf("Failed to connect to database (attempt %d/%d): %v. Retrying in %v", attempt, maxRetries, err, retryDelay)
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, lastErr)
}
