package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/smileshop/keystore/api"
	"github.com/smileshop/keystore/config"
	"github.com/smileshop/keystore/db"
	"github.com/smileshop/keystore/middleware"
	"github.com/smileshop/keystore/notify"
	"github.com/smileshop/keystore/providers"
	"github.com/smileshop/keystore/services"
	"github.com/smileshop/keystore/stores"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func printBanner() {
	fmt.Printf("%s%s", colorCyan, colorBold)
	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║                                                          ║")
	fmt.Println("║  SMILESHOP keystore                                      ║")
	fmt.Println("║                                                          ║")
	fmt.Println("║  Digital game key storefront backend                     ║")
	fmt.Println("║                                                          ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Printf("%s", colorReset)
}

func printStep(step, message string) {
	fmt.Printf("%s[%s]%s %s%s%s\n", colorBlue, step, colorReset, colorBold, message, colorReset)
}

func printSuccess(message string) {
	fmt.Printf("%s✓%s %s\n", colorGreen, colorReset, message)
}

func printWarning(message string) {
	fmt.Printf("%s⚠%s %s\n", colorYellow, colorReset, message)
}

func printError(message string) {
	fmt.Printf("%s✗%s %s\n", colorRed, colorReset, message)
}

func main() {
	printBanner()
	fmt.Println()

	printStep("1/7", "Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		printError(fmt.Sprintf("Configuration validation failed: %v", err))
		os.Exit(1)
	}
	printSuccess("Configuration loaded and validated")

	printStep("2/7", "Connecting to database...")
	gormDB, err := db.Open(cfg)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect to database: %v", err))
		os.Exit(1)
	}
	defer db.Close(gormDB)
	printSuccess(fmt.Sprintf("Connected to PostgreSQL at %s:%d", cfg.Database.Host, cfg.Database.Port))

	printStep("3/7", "Running migrations...")
	if err := db.Migrate(gormDB); err != nil {
		printError(fmt.Sprintf("Migration failed: %v", err))
		os.Exit(1)
	}
	printSuccess("Schema up to date")

	printStep("4/7", "Initializing payment provider...")
	tbank, err := providers.NewTBankProvider(cfg.TBank)
	if err != nil {
		printError(fmt.Sprintf("Failed to initialize T-Bank provider: %v", err))
		os.Exit(1)
	}
	provider := providers.NewResilientProvider(tbank)
	printSuccess(fmt.Sprintf("T-Bank terminal %s ready", cfg.TBank.TerminalKey))

	printStep("5/7", "Initializing mail transport...")
	sender := notify.NewSMTPSender(cfg.SMTP)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := sender.Ping(pingCtx); err != nil {
		printWarning(fmt.Sprintf("SMTP host %s unreachable: %v (continuing)", cfg.SMTP.Host, err))
	} else {
		printSuccess(fmt.Sprintf("SMTP host %s reachable", cfg.SMTP.Host))
	}
	cancel()

	printStep("6/7", "Initializing stores and services...")
	gameStore := stores.CreateGameStore(gormDB)
	orderStore := stores.CreateOrderStore(gormDB)
	webhookStore := stores.CreateWebhookStore(gormDB)

	checkoutService := services.CreateCheckoutService(gameStore, orderStore, provider)
	fulfillmentService := services.CreateFulfillmentService(orderStore, gameStore, sender)
	webhookService := services.CreateWebhookService(orderStore, webhookStore, fulfillmentService)
	printSuccess("Stores and services initialized")

	printStep("7/7", "Setting up HTTP server...")
	checkoutHandler := api.CreateCheckoutHandler(checkoutService)
	webhookHandler := api.CreateWebhookHandler(provider, webhookService)
	healthHandler := api.CreateHealthHandler(gormDB)

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.RecoveryMiddleware)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/health", healthHandler.HandleHealthCheck).Methods("GET")

	orderRouter := apiRouter.NewRoute().Subrouter()
	orderRouter.Use(middleware.RateLimitMiddleware(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst))
	orderRouter.Use(middleware.BuyerAuthMiddleware)
	checkoutHandler.RegisterRoutes(orderRouter)

	webhookHandler.RegisterRoutes(apiRouter)

	server := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	printSuccess("HTTP server configured")

	fmt.Println()
	fmt.Printf("%s%skeystore is ready on port %s%s\n", colorGreen, colorBold, cfg.Server.Port, colorReset)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			printError(fmt.Sprintf("Server error: %v", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println()
	printStep("--", "Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		printError(fmt.Sprintf("Forced shutdown: %v", err))
		os.Exit(1)
	}
	printSuccess("Server stopped cleanly")
}
