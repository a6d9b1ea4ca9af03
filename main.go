// File: schedulai/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schedulai/config"
	"schedulai/handlers"
	"schedulai/middleware"
	"schedulai/routes"
	"schedulai/services/calendar"
	"schedulai/services/dialogue"
	"schedulai/services/extraction"
	"schedulai/services/scheduler"
	"schedulai/services/session"
	"schedulai/services/slots"
	"schedulai/services/timeparse"
	"schedulai/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	utils.InitSessionCache()
	utils.InitIdempotencyCache()

	calendarSvc, err := calendar.NewGoogleCalendarService(
		config.AppConfig.GoogleServiceAccountFile,
		config.AppConfig.CalendarID,
	)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize calendar service: %v", err)
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// services.
	sessionTTL := time.Duration(config.AppConfig.SessionTTLMinutes) * time.Minute
	sessionStore := session.NewRedisStore(utils.GetSessionCacheClient(), sessionTTL)

	tokenRegistry := scheduler.NewRedisTokenRegistry(utils.GetIdempotencyCacheClient(), 24*time.Hour)
	orchestrator := scheduler.NewOrchestrator(
		calendarSvc,
		calendarSvc,
		tokenRegistry,
		config.AppConfig.BookingMaxAttempts,
	)

	resolver := timeparse.NewResolver(calendarSvc)
	finder := slots.NewFinder(calendarSvc)
	extractor := extraction.NewGeminiExtractor(
		config.AppConfig.GeminiAPIKey,
		config.AppConfig.GeminiModel,
	)

	engine := dialogue.NewEngine(
		extractor,
		resolver,
		finder,
		orchestrator,
		sessionStore,
		config.AppConfig.AutoBook,
	)

	dialogueHandler := handlers.NewDialogueHandler(engine, logger)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		ChatHandler:   dialogueHandler.Chat,
		SelectHandler: dialogueHandler.Select,
		CancelHandler: dialogueHandler.Cancel,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: forced shutdown: %v", err)
	}
	logger.Sugar().Info("Server exited cleanly")
}
