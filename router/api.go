package router

import (
	"context"
	"database/sql"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/handlers"
	"github.com/normatel/norahub/services"
)

func NewGinRouter(pg *sql.DB, rdb *redis.Client) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize the cargo registry and seed the default roles
	registry := authz.NewSimpleCargoRegistry(pg)
	if err := registry.Bootstrap(context.Background()); err != nil {
		log.Printf("Warning: cargo bootstrap failed: %v", err)
	}

	// Initialize services
	authService := services.NewAuthService(pg)
	userService := services.NewUserService(pg, rdb, registry)
	cargoService := services.NewCargoService(registry, userService)
	projectService := services.NewProjectService(pg, userService)
	notificationService := services.NewNotificationService(pg, rdb)
	formService := services.NewFormService(pg, projectService)

	userService.SetNotifier(notificationService)
	projectService.SetNotifier(notificationService)
	formService.SetNotifier(notificationService)

	// Object storage is optional: without credentials the file features are
	// disabled but the rest of the portal works.
	var fileService *services.FileService
	var folderService *services.FolderService
	store, err := services.NewGCSStore(context.Background())
	if err != nil {
		log.Printf("Warning: object store not available: %v", err)
	} else {
		folderService = services.NewFolderService(pg, store)
		fileService = services.NewFileService(projectService, folderService, store)
		projectService.SetFolders(folderService)
	}

	// Initialize handlers
	authMiddleware := handlers.NewAuthMiddleware(authService, userService)
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	cargoHandler := handlers.NewCargoHandler(cargoService)
	projectHandler := handlers.NewProjectHandler(projectService)
	formHandler := handlers.NewFormHandler(formService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Public routes
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
	}

	// Authenticated routes. Pending accounts can read their own profile and
	// notifications; everything else requires an active account.
	api := r.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	{
		api.GET("/me", userHandler.Me)
		api.GET("/me/decision", userHandler.MyDecision)
		api.GET("/me/favorites", userHandler.Favorites)
		api.PUT("/me/fcm-token", userHandler.UpdateFCMToken)

		api.GET("/notifications", notificationHandler.ListNotifications)
		api.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		api.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
	}

	active := api.Group("")
	active.Use(authMiddleware.RequireActive())
	{
		active.POST("/me/favorites/:projectId/toggle", userHandler.ToggleFavorite)

		users := active.Group("/users")
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
			users.POST("/:id/approve", userHandler.ApproveUser)
			users.POST("/:id/projects/:projectId/toggle", userHandler.ToggleProjectAssignment)
		}

		cargos := active.Group("/cargos")
		{
			cargos.GET("", cargoHandler.ListCargos)
			cargos.GET("/:id", cargoHandler.GetCargo)
			cargos.POST("", cargoHandler.CreateCargo)
			cargos.PUT("/:id", cargoHandler.UpdateCargo)
			cargos.DELETE("/:id", cargoHandler.DeleteCargo)
		}

		projects := active.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.POST("", projectHandler.CreateProject)
			projects.PUT("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)

			projects.POST("/:id/members", projectHandler.AddMember)
			projects.DELETE("/:id/members/:userId", projectHandler.RemoveMember)

			projects.POST("/:id/cards", projectHandler.AddCard)
			projects.PUT("/:id/cards/:cardId", projectHandler.UpdateCard)
			projects.DELETE("/:id/cards/:cardId", projectHandler.DeleteCard)

			projects.POST("/:id/cards/:cardId/responses", formHandler.SubmitResponse)
			projects.GET("/:id/cards/:cardId/responses", formHandler.ListResponses)
			projects.GET("/:id/cards/:cardId/responses/export", formHandler.ExportCSV)
		}

		if fileService != nil {
			fileHandler := handlers.NewFileHandler(fileService, folderService)
			files := active.Group("/projects/:id/cards/:cardId/files")
			{
				files.GET("", fileHandler.ListFiles)
				files.POST("", fileHandler.UploadFile)
				files.DELETE("", fileHandler.DeleteFile)
				files.GET("/download-url", fileHandler.DownloadURL)
			}
			active.GET("/storage-ops/:opId", fileHandler.GetStorageOp)
		}
	}

	return r
}
