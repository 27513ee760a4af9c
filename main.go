package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wisemarket1122/wisemarket/internal/api"
	"github.com/wisemarket1122/wisemarket/internal/cache"
	"github.com/wisemarket1122/wisemarket/internal/config"
	"github.com/wisemarket1122/wisemarket/internal/db"
	"github.com/wisemarket1122/wisemarket/internal/email"
	"github.com/wisemarket1122/wisemarket/internal/services"
	"github.com/wisemarket1122/wisemarket/internal/session"
	"github.com/wisemarket1122/wisemarket/internal/storage"
	"github.com/wisemarket1122/wisemarket/internal/tasks"
	"github.com/wisemarket1122/wisemarket/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	gdb, err := db.ConnectDB(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(gdb); err != nil {
			log.Printf("Error disconnecting from MySQL: %v", err)
		}
	}()
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Cache (Redis)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Initialize Email Sender
	emailSender := email.NewSMTPSender(cfg)

	// Initialize Image Storage
	imageStore, err := storage.NewDiskStorage(cfg.UploadDir, "market", "community")
	if err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}

	// Initialize Services
	userService := services.NewUserService(gdb, cfg, emailSender)
	listingService := services.NewListingService(gdb)
	boardService := services.NewBoardService(gdb)
	chatService := services.NewChatService(gdb)
	sessionStore := session.NewRedisStore(redisClient)

	// The hub owns the live room registry; one goroutine, started here,
	// serializes joins, sends and disconnects for the whole process.
	hub := ws.NewHub(chatService)
	go hub.Run()

	var wg sync.WaitGroup

	// Web server
	router := api.SetupRouter(api.Deps{
		Cfg:      cfg,
		Users:    userService,
		Listings: listingService,
		Boards:   boardService,
		Chats:    chatService,
		Sessions: sessionStore,
		Images:   imageStore,
		Hub:      hub,
	})
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		fmt.Printf("WISE market listening on :%s\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
		fmt.Println("Web server stopped.")
	}()

	// Background worker: periodic purge of unverified accounts.
	taskProcessor := tasks.NewTaskProcessor(cfg, userService)
	taskSrv, taskMux := tasks.SetupServer(redisClient, taskProcessor)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := taskSrv.Run(taskMux); err != nil {
			log.Fatalf("Background task server error: %v", err)
		}
		fmt.Println("Background task server stopped.")
	}()

	// One purge right away, so a restart does not wait out the first tick.
	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	if _, err := taskClient.Enqueue(tasks.NewAccountPurgeTask()); err != nil {
		log.Printf("Failed to enqueue startup account purge: %v", err)
	}

	scheduler, err := tasks.SetupScheduler(redisClient)
	if err != nil {
		log.Fatalf("Failed to set up task scheduler: %v", err)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := scheduler.Run(); err != nil {
			log.Fatalf("Task scheduler error: %v", err)
		}
		fmt.Println("Task scheduler stopped.")
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Web server shutdown error: %v", err)
	}
	scheduler.Shutdown()
	taskSrv.Shutdown()

	wg.Wait()
	fmt.Println("Server gracefully stopped")
}
