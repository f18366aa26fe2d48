package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recTribeAPI/handlers"
	"recTribeAPI/internal/docstore"
	"recTribeAPI/internal/identity"
	"recTribeAPI/internal/notification"
	"recTribeAPI/internal/session"
	"recTribeAPI/middleware"
	"recTribeAPI/services"
)

var (
	dbPool            *pgxpool.Pool
	store             docstore.Store
	userService       *services.UserService
	socialService     *services.SocialService
	engagementService *services.EngagementService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The backend is picked once at startup; an unset backend means the
	// remote store is unavailable and every mutation stays local-only.
	switch backend := os.Getenv("STORE_BACKEND"); backend {
	case "firestore":
		credentials := os.Getenv("FIREBASE_CREDENTIALS")
		if credentials == "" {
			credentials = "./serviceAccountKey.json"
		}
		fs, err := docstore.NewFirestoreStore(ctx, credentials)
		if err != nil {
			log.Fatal("Failed to initialize firestore store:", err)
		}
		store = fs
		log.Println("Successfully connected to Firestore")

	case "postgres":
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			log.Fatal("DATABASE_URL environment variable is not set")
		}

		poolConfig, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			log.Fatal("Failed to parse database URL:", err)
		}

		poolConfig.MaxConns = 25
		poolConfig.MinConns = 5
		poolConfig.MaxConnLifetime = time.Hour
		poolConfig.MaxConnIdleTime = 30 * time.Minute
		poolConfig.HealthCheckPeriod = time.Minute

		dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			log.Fatal("Failed to create connection pool:", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Fatal("Failed to ping database:", err)
		}

		pg, err := docstore.NewPostgresStore(ctx, dbPool)
		if err != nil {
			log.Fatal("Failed to initialize postgres store:", err)
		}
		store = pg
		log.Println("Successfully connected to Postgres")

	case "memory":
		store = docstore.NewMemoryStore()
		log.Println("Using in-memory store")

	case "":
		log.Println("STORE_BACKEND not set; running in local-only mode")

	default:
		log.Fatalf("Unknown STORE_BACKEND %q", backend)
	}

	var pusher notification.Pusher
	fcmService, err := notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		pusher = fcmService
		log.Println("FCM Push Provider initialized successfully")
	}

	sessions := session.NewManager()
	userService = services.NewUserService(store, identity.NewClerkProvider())
	socialService = services.NewSocialService(store, pusher)
	engagementService = services.NewEngagementService(store, sessions, socialService)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		if dbPool != nil {
			log.Println("Closing database connection pool...")
			dbPool.Close()
		}
	}()

	userHandler := handlers.NewUserHandler(userService, engagementService, socialService)
	friendsHandler := handlers.NewFriendsHandler(userService, engagementService, socialService)
	recHandler := handlers.NewRecommendationHandler(userService, engagementService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "recTribe-api"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/device", userHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/user/logout", userHandler.Logout).Methods("POST")
	protected.HandleFunc("/user/search", userHandler.SearchUsers).Methods("GET")
	protected.HandleFunc("/session/refresh", userHandler.RefreshSession).Methods("POST")

	protected.HandleFunc("/feed", recHandler.GetFeed).Methods("GET")
	protected.HandleFunc("/recommendations", recHandler.CreateRecommendation).Methods("POST")
	protected.HandleFunc("/recommendations/{id}", recHandler.EditRecommendation).Methods("PUT")
	protected.HandleFunc("/recommendations/{id}", recHandler.DeleteRecommendation).Methods("DELETE")
	protected.HandleFunc("/recommendations/{id}/like", recHandler.ToggleLike).Methods("POST")
	protected.HandleFunc("/recommendations/{id}/complete", recHandler.ToggleCompleted).Methods("POST")

	protected.HandleFunc("/friends", friendsHandler.GetFriends).Methods("GET")
	protected.HandleFunc("/friends/{uid}", friendsHandler.Unfriend).Methods("DELETE")
	protected.HandleFunc("/friends/requests", friendsHandler.SendRequest).Methods("POST")
	protected.HandleFunc("/friends/requests/incoming", friendsHandler.ListIncoming).Methods("GET")
	protected.HandleFunc("/friends/requests/outgoing", friendsHandler.ListOutgoing).Methods("GET")
	protected.HandleFunc("/friends/requests/{id}/accept", friendsHandler.Accept).Methods("POST")
	protected.HandleFunc("/friends/requests/{id}/reject", friendsHandler.Reject).Methods("POST")
	protected.HandleFunc("/friends/connect", friendsHandler.InstantConnect).Methods("POST")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
