package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"comixie/internal/cache"
	"comixie/internal/comics"
	"comixie/internal/fetch"
	"comixie/internal/pdf"
	"comixie/pkg/database"
	"comixie/pkg/utils"
)

func main() {
	cfg := utils.LoadConfig()

	ctx := context.Background()
	db := database.MustConnect(ctx, database.DefaultConfig())
	defer database.Disconnect(ctx, db)

	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("db index setup failed: %v", err)
	}

	listings := cache.NewRedis(cfg.RedisAddr)
	defer listings.Close()

	pageFetcher := fetch.NewClient(cfg.FetchTimeout)
	imageFetcher := fetch.NewClient(cfg.ImageTimeout)

	repo := comics.NewRepo(db)
	svc := comics.NewService(pageFetcher, repo, listings, cfg.SourceBaseURL)
	composer := pdf.NewComposer(imageFetcher)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}))

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	handler := comics.NewHandler(svc, composer)
	handler.RegisterRoutes(router.Group("/api"))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on %s", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("server stopped")
}
