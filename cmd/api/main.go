package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"hostelflow/agreement"
	"hostelflow/audit"
	"hostelflow/auth"
	"hostelflow/billing"
	"hostelflow/config"
	"hostelflow/db"
	"hostelflow/dispute"
	"hostelflow/notification"
	"hostelflow/paystack"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	infoLog := log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime)
	errorLog := log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		errorLog.Fatal(err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		errorLog.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	verifier, err := paystack.NewVerifier(cfg.PaystackSecret)
	if err != nil {
		errorLog.Fatal(err)
	}

	auditRepo := audit.NewRepository(pool)
	billingRepo := billing.NewRepository(pool)
	notificationRepo := notification.NewRepository(pool)

	server := &Server{
		verifier:      verifier,
		billing:       billing.NewService(billingRepo, auditRepo, notificationRepo, errorLog),
		auth:          auth.NewService(auth.NewRepository(pool), cfg.JWTSecret),
		notifications: notification.NewService(notificationRepo),
		disputes:      dispute.NewService(dispute.NewRepository(pool), auditRepo, errorLog),
		agreements:    agreement.NewService(agreement.NewRepository(pool), billingRepo, auditRepo, errorLog),
		auditTrail:    auditRepo,
		infoLog:       infoLog,
		errorLog:      errorLog,
	}

	c := cors.New(cors.Options{
		AllowedOrigins:       cfg.AllowedOrigins,
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:       []string{"Content-Type", "Authorization", paystack.SignatureHeader},
		OptionsSuccessStatus: http.StatusOK,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		ErrorLog:     errorLog,
		Handler:      c.Handler(server.routes()),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	infoLog.Printf("starting server on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil {
		errorLog.Fatal(err)
	}
}
