package main

import (
	"fmt"
	"log"

	"docquery/internal/adapter/openai"
	"docquery/internal/adapter/repository/postgres"
	pgvectorstore "docquery/internal/adapter/vectorstore/pgvector"
	qdrantstore "docquery/internal/adapter/vectorstore/qdrant"
	"docquery/internal/delivery/http/handler"
	"docquery/internal/delivery/http/middleware"
	"docquery/internal/domain/vectorstore"
	"docquery/internal/usecase/auth"
	"docquery/internal/usecase/document"
	"docquery/pkg/config"
	"docquery/pkg/database"
	"docquery/pkg/retry"

	"github.com/gofiber/fiber/v2"

	// log
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	cfg := config.Load()

	// connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("connected to database")

	// initialize openai client
	embeddingClient := openai.NewEmbeddingClient(cfg.OpenAIKey, cfg.OpenAIEmbeddingModel)
	chatClient := openai.NewChatClient(cfg.OpenAIKey, cfg.OpenAIChatModel)

	// initialize vector index
	var index vectorstore.VectorIndex
	switch cfg.VectorStore {
	case "qdrant":
		qdrantIndex, err := qdrantstore.New(cfg.QdrantAddr)
		if err != nil {
			log.Fatalf("failed to connect to qdrant: %v", err)
		}
		defer qdrantIndex.Close()
		index = qdrantIndex
		log.Println("using qdrant vector store")
	case "pgvector":
		index = pgvectorstore.NewIndex(db)
		log.Println("using pgvector vector store")
	default:
		log.Fatalf("unknown vector store: %s", cfg.VectorStore)
	}

	// initialize repository
	userRepo := postgres.NewUserRepository(db)
	docRepo := postgres.NewDocumentRepository(db)

	// initialize usecase
	authUsecase := auth.NewAuthUsecase(userRepo, cfg.JWTSecret, cfg.JWTExpiration)
	docUsecase := document.NewDocumentUsecase(
		docRepo,
		index,
		embeddingClient,
		chatClient,
		document.Config{
			ChunkSize:       cfg.ChunkSize,
			ChunkOverlap:    cfg.ChunkOverlap,
			TopK:            cfg.TopKResults,
			MaxContextChars: cfg.MaxContextChars,
			IndexWorkers:    cfg.IndexWorkers,
			Retry: retry.Config{
				MaxRetries:   cfg.ChunkRetries,
				InitialDelay: cfg.RetryBaseDelay,
				MaxDelay:     8 * cfg.RetryBaseDelay,
				Multiplier:   2.0,
			},
			UpstreamTimeout:    cfg.UpstreamTimeout,
			EmbeddingDimension: cfg.EmbeddingDimension,
			CollectionPrefix:   cfg.CollectionPrefix,
		},
	)

	// initialize handler
	authHandler := handler.NewAuthHandler(authUsecase)
	docHandler := handler.NewDocumentHandler(docUsecase)

	// initialize fiber app
	app := fiber.New()

	// middleware for log request and response in terminal
	app.Use(logger.New())

	// Public Routes
	api := app.Group("/api")
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	// Protected Routes
	protected := api.Group("", middleware.JWTAuth(cfg.JWTSecret))
	protected.Get("/auth/me", authHandler.Me)

	// document routes
	protected.Post("/documents/upload", docHandler.Upload)
	protected.Get("/documents", docHandler.List)
	protected.Get("/documents/:id", docHandler.GetByID)
	protected.Get("/documents/:id/status", docHandler.Status)
	protected.Post("/documents/:id/reindex", docHandler.Reindex)
	protected.Post("/documents/:id/share", docHandler.Share)
	protected.Delete("/documents/:id/share/:userId", docHandler.Unshare)
	protected.Post("/documents/:id/query", docHandler.Query)

	// Start server
	log.Printf("Server starting on port %d", cfg.Port)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
