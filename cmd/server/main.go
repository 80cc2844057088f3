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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/sujalbistaa/whisperwall/internal/db"
	routes "github.com/sujalbistaa/whisperwall/internal/http"
	"github.com/sujalbistaa/whisperwall/internal/identity"
	"github.com/sujalbistaa/whisperwall/internal/match"
	"github.com/sujalbistaa/whisperwall/internal/models"
	"github.com/sujalbistaa/whisperwall/internal/store"
	"github.com/sujalbistaa/whisperwall/internal/ws"
)

func main() {
	seed := flag.Bool("seed", false, "insert sample whispers at startup")
	flag.Parse()

	// Load .env first. Missing file is fine; production sets env vars
	// directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	// 1. Initialize Database
	database, err := db.Init()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 2. Run Migrations
	log.Println("Running database migrations...")
	if err := database.AutoMigrate(&models.Identity{}, &models.Whisper{}, &models.Reply{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations complete.")

	// 3. Build the application core
	st := store.New(database)
	defer st.Close()

	if *seed {
		log.Println("Seeding sample whispers...")
		if err := seedWhispers(st); err != nil {
			log.Fatalf("Failed to seed whispers: %v", err)
		}
	}

	hub := ws.NewHub()
	go hub.Run()

	env := &routes.Env{
		Store:    st,
		Matcher:  match.NewEngine(st, nil),
		Resolver: identity.NewResolver(st),
		Hub:      hub,
	}

	// 4. Initialize Gin Router
	router := gin.New()
	routes.SetupRoutes(router, env)

	// 5. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
