package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tradelink/tradelink-api/internal/database"
	"github.com/tradelink/tradelink-api/internal/handlers"
	"github.com/tradelink/tradelink-api/internal/notify"
	"github.com/tradelink/tradelink-api/internal/pricelist"
	"github.com/tradelink/tradelink-api/internal/routes"
	"go.uber.org/zap"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file found, relying on system environment variables")
	}
	if os.Getenv("GIN_MODE") == "release" && os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET must be set in release mode")
	}

	// 1. --- Database Connection & Schema ---
	db, err := database.OpenDB(log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, "schema.sql", log); err != nil {
		log.Fatal("failed to apply schema", zap.Error(err))
	}

	// 2. --- Notification Dispatcher ---
	mailer := notify.NewMailerFromEnv(log)
	dispatcher := notify.NewDispatcher(db, mailer, log, 4, 256)

	// 3. --- Application Setup ---
	app := &handlers.Handlers{
		DB:       db,
		Notify:   dispatcher,
		Composer: &notify.Composer{DB: db},
		Importer: &pricelist.Importer{DB: db, Log: log},
		Log:      log,
	}

	router := routes.SetupRouter(app)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// 4. --- Start Server ---
	go func() {
		log.Info("starting API server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// 5. --- Graceful Shutdown ---
	// Stop accepting requests first, then drain the notification queue so
	// in-flight emails still go out.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	dispatcher.Close()
}
