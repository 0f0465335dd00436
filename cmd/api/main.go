package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"bankledger/internal/config"
	"bankledger/internal/events"
	"bankledger/internal/events/kafka"
	"bankledger/internal/handler"
	"bankledger/internal/integrations/cbr"
	"bankledger/internal/middleware"
	"bankledger/internal/scheduler"
	"bankledger/internal/service"
	"bankledger/internal/storage/postgres"
	"bankledger/internal/utils/email"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	store := postgres.NewStore(db)
	rateClient := cbr.NewClient(cfg, logger)
	sender := email.NewSender(cfg, logger)

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	var notifier service.Notifier
	var depositNotifier scheduler.DepositNotifier
	if cfg.SMTPHost != "" {
		notifier = sender
		depositNotifier = sender
	}

	users := service.NewUserService(store, logger, cfg.JWTSecret)
	accounts := service.NewAccountService(store, logger, rateClient)
	cards := service.NewCardService(store, logger)
	transfers := service.NewTransferService(store, logger, publisher, notifier)
	h := handler.NewHandler(users, accounts, cards, transfers, logger)

	// Start scheduled jobs
	jobs := scheduler.New(accounts, store, depositNotifier, logger)
	jobs.Start()
	defer jobs.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	authRouter.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	authRouter.HandleFunc("/accounts/{id}", h.DeleteAccount).Methods("DELETE")
	authRouter.HandleFunc("/accounts/{id}/cards", h.ListCards).Methods("GET")
	authRouter.HandleFunc("/accounts/{id}/transactions", h.TransactionHistory).Methods("GET")
	authRouter.HandleFunc("/cards", h.CreateCard).Methods("POST")
	authRouter.HandleFunc("/cards/{id}", h.DeleteCard).Methods("DELETE")
	authRouter.HandleFunc("/transactions/deposit", h.Deposit).Methods("POST")
	authRouter.HandleFunc("/transactions/withdraw", h.Withdraw).Methods("POST")
	authRouter.HandleFunc("/transactions/transfer", h.Transfer).Methods("POST")
	authRouter.HandleFunc("/transactions/card-transfer", h.CardTransfer).Methods("POST")
	authRouter.HandleFunc("/transactions/{id}", h.Transaction).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
