package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/instat-sds/fiches-portal/auth"
	"github.com/instat-sds/fiches-portal/internal/config"
	"github.com/instat-sds/fiches-portal/internal/db"
	"github.com/instat-sds/fiches-portal/internal/models"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migrations and exit")
	seedOnly := flag.Bool("seed-only", false, "seed referential data and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}
	cfg := config.Load()

	conn, err := db.Connect(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	if cfg.App.Migrations || *migrateOnly {
		if err := db.Migrate(conn); err != nil {
			log.Fatalf("migrations: %v", err)
		}
		log.Println("migrations applied")
	}
	if *migrateOnly {
		return
	}

	if err := db.Seed(conn, cfg.App.AdminEmail, cfg.App.AdminPassword); err != nil {
		log.Fatalf("seed: %v", err)
	}
	if *seedOnly {
		log.Println("seed complete")
		return
	}

	// Sessions of deleted users are cleared instead of resolving to a
	// default-role profile.
	auth.SetUserVerifier(func(ctx context.Context, userID string) bool {
		var n int64
		conn.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&n)
		return n > 0
	})

	app := NewApp(conn)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(app.Handler()),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	closeDB(conn)
	log.Println("bye")
}

func closeDB(conn *gorm.DB) {
	sqlDB, err := conn.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}

// withLogging logs method, path, status and duration for every request.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
