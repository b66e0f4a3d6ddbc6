package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	config "github.com/harsh-kumar-singhh/linkmate/configs"
	"github.com/harsh-kumar-singhh/linkmate/internal/api/handlers"
	"github.com/harsh-kumar-singhh/linkmate/internal/api/middleware"
	job "github.com/harsh-kumar-singhh/linkmate/internal/jobs"
	"github.com/harsh-kumar-singhh/linkmate/internal/queue"
	"github.com/harsh-kumar-singhh/linkmate/internal/repository"
	"github.com/harsh-kumar-singhh/linkmate/internal/service"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    20 * 1024 * 1024, // 20 MB, image attachments only
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Cron-Secret",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	accountRepo := repository.NewLinkedInAccountRepository(db)
	attemptRepo := repository.NewPublishAttemptRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	mediaService := service.NewMediaService(*cfg, mediaAssetRepo)
	linkedInService := service.NewLinkedInService(*cfg, accountRepo)
	postService := service.NewPostService(postRepo, mediaService)
	publisherService := service.NewPublisherService(postRepo, accountRepo, attemptRepo, linkedInService)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)
	app.Get("/logout", auth.Logout)

	publish := handlers.NewPublishHandler(*cfg, publisherService, linkedInService)
	app.Post("/cron/publish-due", publish.CronPublish)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	platform := handlers.NewPlatformHandler(*cfg, linkedInService)
	api.Get("/auth/linkedin", platform.ConnectLinkedIn)
	api.Get("/auth/linkedin/callback", platform.CallbackHandler)
	api.Get("/accounts", platform.AccountInfo)
	api.Post("/accounts/remove", platform.DisconnectLinkedIn)

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Post("/user/remove", user.RemoveUser)

	media := handlers.NewMediaHandler(mediaService)
	api.Get("/assets", media.ListAssets)
	api.Post("/assets/remove", media.RemoveAsset)

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Post("/posts/update", post.UpdatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)
	api.Get("/posts/notifications", post.ListNotifications)
	api.Post("/posts/notifications/ack", post.AcknowledgeNotifications)
	api.Get("/posts/history", publish.AttemptHistory)

	api.Post("/posts/heartbeat", publish.Heartbeat)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(accountRepo, linkedInService)

	// queue
	queueW := queue.NewQueue(publisherService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishCheck, queueW.HandlePublishCheckTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
