/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Service Tenure & Promotion Grade Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags (defaults from environment)
  2. Initialize SQLite store
  3. Create API handler and metrics
  4. Configure HTTP router
  5. Start the promotion watch
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port            HTTP server port (env PORT, default: 8080)
  -db              SQLite database path (env DB_PATH, default: grades.db)
                   Use ":memory:" for in-memory database
  -watch           Run the promotion watch (env WATCH, default: true)
  -watch-interval  Promotion watch interval (env WATCH_INTERVAL, default: 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the promotion watch
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/grades.db"
  ./server -db=":memory:" -watch=false
  PORT=3000 WATCH_INTERVAL=15m ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Promotion watch
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/warp/grade-engine/api"
	"github.com/warp/grade-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", getEnvInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", getEnv("DB_PATH", "grades.db"), "SQLite database path")
	watch := flag.Bool("watch", getEnvBool("WATCH", true), "Run the promotion watch")
	watchInterval := flag.Duration("watch-interval", getEnvDuration("WATCH_INTERVAL", time.Hour), "Promotion watch interval")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, api.NewMetrics())
	router := api.NewRouter(handler)

	// Promotion watch
	promotionWatch := api.NewPromotionWatch(handler)
	promotionWatch.CheckInterval = *watchInterval
	promotionWatch.Enabled = *watch
	promotionWatch.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api, metrics at /metrics", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	promotionWatch.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
