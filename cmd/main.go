package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/finplay/finplay-gobackend/internal/config"
	"github.com/finplay/finplay-gobackend/internal/db"
	"github.com/finplay/finplay-gobackend/internal/handlers"
	"github.com/finplay/finplay-gobackend/internal/middleware"
	"github.com/finplay/finplay-gobackend/internal/payments"
	"github.com/finplay/finplay-gobackend/internal/services"
	"github.com/finplay/finplay-gobackend/internal/token"
)

func main() {
	cfg := config.Load()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if cfg.MongoURI == "" {
		logrus.Fatal("MONGODB_URI environment variable not set")
	}
	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		logrus.Fatal("JWT_SECRET and JWT_REFRESH_SECRET must be set")
	}

	// Connect to MongoDB
	client, err := db.Connect(context.Background(), cfg.MongoURI)
	if err != nil {
		logrus.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logrus.Errorf("error disconnecting from MongoDB: %v", err)
		}
	}()
	logrus.Info("connected to MongoDB")

	database := client.Database(cfg.MongoDB)
	if err := db.EnsureIndexes(context.Background(), database); err != nil {
		logrus.Fatalf("failed to create indexes: %v", err)
	}

	// Redis backs the rate limiter and the stats cache.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Warnf("redis unavailable, rate limiting and caching degraded: %v", err)
	}

	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTExpire, cfg.JWTRefreshExpire)
	gateway := payments.New(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)

	userService := services.NewUserService(database, tokens, cfg.BcryptRounds)
	transactionService := services.NewTransactionService(database, gateway)
	financialService := services.NewFinancialService(database, redisClient)

	authHandler := handlers.NewAuthHandler(userService, cfg.IsProd)
	userHandler := handlers.NewUserHandler(userService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	financialHandler := handlers.NewFinancialHandler(financialService)

	authenticate := middleware.Authenticate(tokens, userService)
	optionalAuth := middleware.OptionalAuth(tokens, userService)

	// Set up router
	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.RequestLogger)
	api.Use(middleware.RateLimit(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow))

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", authHandler.Register).Methods("POST")
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")
	auth.HandleFunc("/refresh", authHandler.Refresh).Methods("POST")
	auth.Handle("/logout", authenticate(http.HandlerFunc(authHandler.Logout))).Methods("POST")
	auth.Handle("/me", authenticate(http.HandlerFunc(authHandler.Me))).Methods("GET")

	users := api.PathPrefix("/users").Subrouter()
	users.Use(authenticate)
	users.HandleFunc("/profile", userHandler.GetProfile).Methods("GET")
	users.HandleFunc("/profile", userHandler.UpdateProfile).Methods("PUT")
	users.HandleFunc("/update-coins", userHandler.UpdateCoins).Methods("POST")
	users.HandleFunc("/complete-quiz", userHandler.CompleteQuiz).Methods("POST")
	users.HandleFunc("/account", userHandler.DeleteAccount).Methods("DELETE")

	financial := api.PathPrefix("/financial").Subrouter()
	financial.Handle("/dashboard-stats", authenticate(http.HandlerFunc(financialHandler.DashboardStats))).Methods("GET")
	financial.Handle("/money-management", authenticate(http.HandlerFunc(financialHandler.MoneyManagement))).Methods("GET")
	financial.Handle("/platform-stats", optionalAuth(http.HandlerFunc(financialHandler.PlatformStats))).Methods("GET")

	// The webhook is called by the gateway, not a logged-in client, so it is
	// registered before the authenticated group and carries no bearer token.
	transactions := api.PathPrefix("/transactions").Subrouter()
	transactions.HandleFunc("/webhook", transactionHandler.Webhook).Methods("POST")
	transactions.Handle("/create-order", authenticate(http.HandlerFunc(transactionHandler.CreateOrder))).Methods("POST")
	transactions.Handle("/verify-payment", authenticate(http.HandlerFunc(transactionHandler.VerifyPayment))).Methods("POST")
	transactions.Handle("/analytics", authenticate(http.HandlerFunc(transactionHandler.Analytics))).Methods("GET")
	transactions.Handle("", authenticate(http.HandlerFunc(transactionHandler.List))).Methods("GET")
	transactions.Handle("/{id}", authenticate(http.HandlerFunc(transactionHandler.Get))).Methods("GET")
	transactions.Handle("/{id}/refund", authenticate(http.HandlerFunc(transactionHandler.Refund))).Methods("POST")

	// Start server
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logrus.Infof("server running on port %s", cfg.Port)
	logrus.Fatal(server.ListenAndServe())
}
