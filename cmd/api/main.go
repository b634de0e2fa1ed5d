// main.go
package main

import (
	"log"
	"os"

	"github.com/MuhammadSohaibRiaz/NexFLow/ai"
	"github.com/MuhammadSohaibRiaz/NexFLow/auth"
	cronhandlers "github.com/MuhammadSohaibRiaz/NexFLow/cron"
	"github.com/MuhammadSohaibRiaz/NexFLow/images"
	"github.com/MuhammadSohaibRiaz/NexFLow/internal/platform"
	"github.com/MuhammadSohaibRiaz/NexFLow/pipeline"
	postshandlers "github.com/MuhammadSohaibRiaz/NexFLow/posts"
	"github.com/MuhammadSohaibRiaz/NexFLow/publisher"
	"github.com/MuhammadSohaibRiaz/NexFLow/socials"
	"github.com/MuhammadSohaibRiaz/NexFLow/store"
	topicshandlers "github.com/MuhammadSohaibRiaz/NexFLow/topics"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type Server struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Router *gin.Engine

	Store     *store.Store
	Runner    *pipeline.Runner
	Publisher *publisher.Publisher
}

func NewServer() (*Server, error) {
	// Use the shared connection initializers
	db := platform.NewDBConnection()
	rdb := platform.NewRedisClient()

	st := store.New(db)

	providerCfg, err := ai.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	provider, err := ai.NewProvider(providerCfg)
	if err != nil {
		return nil, err
	}

	runner := pipeline.NewRunner(st, provider)
	pub := newPublisher(st)

	router := gin.Default()

	// Add CORS middleware for your frontend
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", os.Getenv("FRONTEND_URL"))
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	server := &Server{
		DB:        db,
		Redis:     rdb,
		Router:    router,
		Store:     st,
		Runner:    runner,
		Publisher: pub,
	}

	// Setup routes
	server.setupRoutes()

	return server, nil
}

// newPublisher wires the dispatcher with the real platform adapters and the
// image backfill collaborators.
func newPublisher(st *store.Store) *publisher.Publisher {
	adapters := map[string]publisher.Adapter{
		"facebook": socials.NewFacebookAdapter(),
		"linkedin": socials.NewLinkedInAdapter(),
		"twitter": socials.NewTwitterAdapter(
			os.Getenv("TWITTER_CLIENT_ID"),
			os.Getenv("TWITTER_CLIENT_SECRET"),
			st,
		),
	}

	pub := publisher.New(st, adapters)

	imageDir := os.Getenv("IMAGE_DIR")
	if imageDir == "" {
		imageDir = "./data/images"
	}
	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	pub.Images = ai.NewImageProviderFromEnv()
	pub.ImageStore = images.NewDiskStore(imageDir, baseURL+"/images")

	return pub
}

func (s *Server) setupRoutes() {
	// Health check (no auth required)
	s.Router.GET("/health", func(c *gin.Context) {
		// Check database connection
		sqlDB, err := s.DB.DB()
		if err != nil {
			c.JSON(500, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}

		if err := sqlDB.Ping(); err != nil {
			c.JSON(500, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Root route - no auth needed
	s.Router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "NexFlow API v1"})
	})

	// Generated post images
	imageDir := os.Getenv("IMAGE_DIR")
	if imageDir == "" {
		imageDir = "./data/images"
	}
	s.Router.Static("/images", imageDir)

	// Create handlers
	cronHandler := cronhandlers.NewHandler(s.Runner, s.Publisher, os.Getenv("CRON_SECRET"), s.Redis)
	topicHandler := topicshandlers.NewHandler(s.Store, s.Runner)
	postHandler := postshandlers.NewHandler(s.Store, s.Publisher)

	// Cron routes (protected by shared secret, not user auth)
	cronRoutes := s.Router.Group("/cron")
	{
		cronRoutes.GET("/generate", cronHandler.Generate)
		cronRoutes.GET("/publish", cronHandler.Publish)
		cronRoutes.GET("/retry", cronHandler.Retry)
	}

	// Protected routes that require authentication
	protected := s.Router.Group("")
	protected.Use(auth.AuthMiddleware())
	{
		topicRoutes := protected.Group("/topics")
		{
			topicRoutes.POST("", topicHandler.CreateTopic)
			topicRoutes.POST("/reorder", topicHandler.Reorder)
		}

		postRoutes := protected.Group("/posts")
		{
			postRoutes.POST("/approve", postHandler.Approve)
			postRoutes.POST("/schedule", postHandler.Schedule)
			postRoutes.POST("/skip", postHandler.Skip)
			postRoutes.POST("/publish", postHandler.Publish)
		}
	}
}

func (s *Server) Run() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	return s.Router.Run(":" + port)
}

func main() {
	server, err := NewServer()
	if err != nil {
		log.Fatal("Failed to create server:", err)
	}

	if err := server.Run(); err != nil {
		log.Fatal("Failed to run server:", err)
	}
}
