package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/playbookpilot/api/internal/client"
	"github.com/playbookpilot/api/internal/config"
	"github.com/playbookpilot/api/internal/handler"
	"github.com/playbookpilot/api/internal/middleware"
	"github.com/playbookpilot/api/internal/notify"
	"github.com/playbookpilot/api/internal/queue"
	"github.com/playbookpilot/api/internal/service"
	"github.com/playbookpilot/api/internal/store"
	"github.com/playbookpilot/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq-backed enqueuer
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	enqueuer := queue.NewAsynqEnqueuer(asynqClient)
	defer enqueuer.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize notification hub
	hub := notify.NewHub()
	go hub.Run()

	// Initialize stores
	jobStore := store.NewRedisJobStore(redisClient)
	executionStore := store.NewRedisExecutionStore(redisClient)
	playbookStore := store.NewRedisPlaybookStore(redisClient)

	// Initialize generation service client
	generatorClient := client.NewGeneratorClient(&cfg.Generator)

	// Initialize services
	jobService := service.NewJobService(jobStore, executionStore, playbookStore, enqueuer, hub)
	playbookService := service.NewPlaybookService(playbookStore)

	// Initialize handlers
	playbookHandler := handler.NewPlaybookHandler(jobService, playbookService, validate)
	jobHandler := handler.NewJobHandler(jobService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Playbook routes
	playbooks := api.Group("/playbooks")
	playbooks.Post("/generate", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerMin), playbookHandler.Generate)
	playbooks.Get("/:id", playbookHandler.Get)
	playbooks.Post("/:id/validate", rateLimiter.ValidateLimit(cfg.RateLimit.ValidatePerMin), playbookHandler.Validate)
	playbooks.Post("/:id/lint", rateLimiter.LintLimit(cfg.RateLimit.LintPerMin), playbookHandler.Lint)
	playbooks.Post("/:id/execute", rateLimiter.ExecuteLimit(cfg.RateLimit.ExecutePerHour), playbookHandler.Execute)
	playbooks.Post("/:id/refine", rateLimiter.RefineLimit(cfg.RateLimit.RefinePerMin), playbookHandler.Refine)

	// Job routes
	jobs := api.Group("/jobs")
	jobs.Get("/:jobId", jobHandler.Status)
	jobs.Get("/:jobId/result", jobHandler.Result)
	jobs.Post("/:jobId/cancel", jobHandler.Cancel)

	// Execution routes
	executions := api.Group("/executions")
	executions.Get("/:id", jobHandler.Execution)
	executions.Post("/:id/cancel", jobHandler.CancelExecution)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/:entity/:id", websocket.New(func(c *websocket.Conn) {
		entity := c.Params("entity")
		switch entity {
		case "job", "execution", "playbook":
			hub.HandleConnection(c, entity+":"+c.Params("id"))
		default:
			c.Close()
		}
	}))

	// Start per-queue worker pools
	servers := startWorkerPools(cfg, jobStore, executionStore, playbookStore, generatorClient, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		// Stop pulling new tasks, let in-flight workers drain
		for _, srv := range servers {
			srv.Shutdown()
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// startWorkerPools runs one asynq server per queue so each job type gets an
// independently sized worker pool: a burst of generate requests can never
// starve the execute workers.
func startWorkerPools(
	cfg *config.Config,
	jobStore store.JobStore,
	executionStore store.ExecutionStore,
	playbookStore store.PlaybookStore,
	generatorClient *client.GeneratorClient,
	hub *notify.Hub,
) []*asynq.Server {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	pools := []struct {
		queue       string
		taskType    string
		concurrency int
		handler     queue.Handler
	}{
		{service.QueueGenerate, service.TaskTypeGenerate, cfg.Workers.Generate,
			worker.NewGenerateWorker(jobStore, playbookStore, generatorClient, hub)},
		{service.QueueValidate, service.TaskTypeValidate, cfg.Workers.Validate,
			worker.NewValidateWorker(jobStore, playbookStore, generatorClient, hub)},
		{service.QueueLint, service.TaskTypeLint, cfg.Workers.Lint,
			worker.NewLintWorker(jobStore, playbookStore, generatorClient, hub)},
		{service.QueueExecute, service.TaskTypeExecute, cfg.Workers.Execute,
			worker.NewExecuteWorker(jobStore, executionStore, playbookStore, generatorClient, hub)},
		{service.QueueRefine, service.TaskTypeRefine, cfg.Workers.Refine,
			worker.NewRefineWorker(jobStore, playbookStore, generatorClient, hub)},
	}

	servers := make([]*asynq.Server, 0, len(pools))
	for _, pool := range pools {
		srv := asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: pool.concurrency,
			Queues:      map[string]int{pool.queue: 1},
		})
		servers = append(servers, srv)

		mux := asynq.NewServeMux()
		mux.Handle(pool.taskType, queue.AdaptHandler(pool.handler))

		go func(queueName string, srv *asynq.Server, mux *asynq.ServeMux) {
			if err := srv.Run(mux); err != nil {
				log.Printf("Worker pool %s error: %v", queueName, err)
			}
		}(pool.queue, srv, mux)
	}

	return servers
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
