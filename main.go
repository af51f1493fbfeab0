package main

import (
	"log"
	"net/http"

	"mnt-generator/config"
	"mnt-generator/confluence"
	"mnt-generator/handlers"
	"mnt-generator/helper"
	"mnt-generator/middleware"
	"mnt-generator/repositories"
	"mnt-generator/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/joho/godotenv"
	"gopkg.in/go-playground/validator.v9"
	enTranslations "gopkg.in/go-playground/validator.v9/translations/en"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	logger := config.InitLogger(cfg.Log)

	// Initialize database
	db, err := config.InitDB(cfg.DB)
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}

	// Validation helper shared by handlers
	httpHelper := newHTTPHelper()

	// Confluence publisher; nil when no credentials are configured, which
	// leaves every endpoint working except publish
	publisher := confluence.NewClient(cfg.Confluence)
	if publisher == nil {
		logger.Warn("confluence is not configured, publish endpoint disabled")
	}

	// Initialize repositories
	documentRepo := repositories.NewDocumentRepository(db)
	versionRepo := repositories.NewDocumentVersionRepository(db)
	fieldHistoryRepo := repositories.NewFieldHistoryRepository(db)
	actionRepo := repositories.NewActionHistoryRepository(db)
	tagRepo := repositories.NewTagRepository(db)

	// Initialize services
	documentService := services.NewDocumentService(
		db, documentRepo, versionRepo, fieldHistoryRepo, actionRepo, tagRepo, publisher, logger)
	tagService := services.NewTagService(tagRepo)

	// Initialize handlers
	documentHandler := handlers.NewDocumentHandler(documentService, httpHelper)
	tagHandler := handlers.NewTagHandler(tagService, httpHelper)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Read-only document view used by shared links
	router.GET("/mnt/:id/view", documentHandler.ViewDocument)

	// API routes
	api := router.Group("/api")
	{
		mnt := api.Group("/mnt")
		{
			mnt.POST("", documentHandler.CreateDocument)
			mnt.GET("", documentHandler.GetDocuments)
			mnt.POST("/completeness", documentHandler.CheckCompleteness)
			mnt.GET("/:id", documentHandler.GetDocument)
			mnt.PUT("/:id", documentHandler.UpdateDocument)
			mnt.DELETE("/:id", documentHandler.DeleteDocument)
			mnt.POST("/:id/restore", documentHandler.RestoreDocument)
			mnt.POST("/:id/publish", documentHandler.PublishDocument)
			mnt.GET("/:id/completeness", documentHandler.GetCompleteness)
			mnt.GET("/:id/versions", documentHandler.GetVersions)
			mnt.GET("/:id/versions/compare", documentHandler.CompareVersions)
			mnt.GET("/:id/versions/:version_id", documentHandler.GetVersion)
			mnt.GET("/:id/field-history", documentHandler.GetFieldHistory)
			mnt.GET("/:id/history", documentHandler.GetActionHistory)
		}

		tags := api.Group("/tags")
		{
			tags.POST("", tagHandler.CreateTag)
			tags.GET("", tagHandler.GetTags)
			tags.GET("/:id", tagHandler.GetTag)
		}

		autocomplete := api.Group("/autocomplete")
		{
			autocomplete.GET("/projects", documentHandler.AutocompleteProjects)
			autocomplete.GET("/authors", documentHandler.AutocompleteAuthors)
			autocomplete.GET("/tags", tagHandler.AutocompleteTags)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/purge-deleted", documentHandler.PurgeDeleted)
		}
	}

	logger.WithField("port", cfg.HTTPPort).Info("server starting")
	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

func newHTTPHelper() *helper.HTTPHelper {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	enTranslations.RegisterDefaultTranslations(validate, translator)

	return &helper.HTTPHelper{
		Validate:   validate,
		Translator: translator,
	}
}
