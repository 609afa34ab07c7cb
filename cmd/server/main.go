package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localrally/petitiond/internal/config"
	"github.com/localrally/petitiond/internal/database"
	"github.com/localrally/petitiond/internal/handlers"
	"github.com/localrally/petitiond/internal/identity"
	"github.com/localrally/petitiond/internal/middleware"
	"github.com/localrally/petitiond/internal/services"
	"github.com/localrally/petitiond/internal/store"
	"github.com/localrally/petitiond/internal/types"
	"github.com/localrally/petitiond/internal/utils"
)

// @title Petitiond API
// @version 1.0.0
// @description Crowdfunding petition service with multi-database support
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localrally/petitiond

// @host localhost:4941
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	st := store.New(db)

	// Credential resolution: Authorizer sessions when configured,
	// X-Authorization tokens otherwise.
	var resolver identity.Resolver
	if cfg.UseAuthorizer() {
		resolver = identity.NewAuthorizerResolver(cfg, st)
		log.Printf("Authorizer will be initialized on first authenticated request")
	} else {
		resolver = &identity.TokenResolver{Store: st}
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("petitiond")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api/v1
	api := app.Group("/api/v1")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	petitionHandler := &handlers.PetitionHandler{Petitions: &services.PetitionService{Store: st}}
	tierHandler := &handlers.SupportTierHandler{Tiers: &services.TierService{Store: st}}
	supporterHandler := &handlers.SupporterHandler{Supporters: &services.SupporterService{Store: st}}

	auth := middleware.RequireAuth(resolver)

	// Petition routes (public reads, authenticated mutations)
	api.Get("/petitions", petitionHandler.ListPetitions)
	api.Post("/petitions", auth, petitionHandler.CreatePetition)
	api.Get("/petitions/categories", petitionHandler.GetCategories)
	api.Get("/petitions/:id", petitionHandler.GetPetition)
	api.Patch("/petitions/:id", auth, petitionHandler.UpdatePetition)
	api.Delete("/petitions/:id", auth, petitionHandler.DeletePetition)

	// Support tier routes (owner only)
	api.Put("/petitions/:id/supportTiers", auth, tierHandler.AddSupportTier)
	api.Patch("/petitions/:id/supportTiers/:tierId", auth, tierHandler.EditSupportTier)
	api.Delete("/petitions/:id/supportTiers/:tierId", auth, tierHandler.DeleteSupportTier)

	// Supporter routes
	api.Get("/petitions/:id/supporters", supporterHandler.GetSupporters)
	api.Post("/petitions/:id/supporters", auth, supporterHandler.AddSupporter)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors escaping handlers and middleware
func customErrorHandler(c *fiber.Ctx, err error) error {
	// Classified business errors keep their kind-derived status
	if de, ok := err.(*types.DomainError); ok {
		return utils.DomainErrorResponse(c, de)
	}

	code := fiber.StatusInternalServerError
	message := err.Error()

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      "unknown",
	})
}
