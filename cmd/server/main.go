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
	"writeboard/internal/config"
	"writeboard/internal/db"
	"writeboard/internal/router"
	"writeboard/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	// Initialize Database
	db.Init(cfg.DatabaseURL)

	provisionAdmin(cfg)

	r, err := router.New(db.DB, router.Options{
		SessionSecret: cfg.SecretKey,
		SiteURL:       cfg.SiteURL,
		SessionMaxAge: cfg.SessionMaxAge,
		SecureCookie:  cfg.GinMode == gin.ReleaseMode,
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Writeboard server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}

// provisionAdmin creates the first admin from the operator supplied
// credential. Without one the blog runs read/comment only until an admin exists.
func provisionAdmin(cfg *config.Config) {
	users := services.NewUserService(db.DB)

	if !cfg.HasAdminCredential() {
		hasAdmin, err := users.HasAdmin()
		if err != nil {
			log.Fatalf("Failed to check for admin: %v", err)
		}
		if !hasAdmin {
			log.Println("⚠️ No admin account exists and ADMIN_EMAIL/ADMIN_PASSWORD are not set: post authoring is disabled.")
		}
		return
	}

	admin, changed, err := users.ProvisionAdmin(cfg.AdminEmail, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to provision admin: %v", err)
	}
	if changed {
		log.Printf("Provisioned admin %q (id %d). Remove ADMIN_PASSWORD from the environment.", admin.Username, admin.ID)
	}
}
