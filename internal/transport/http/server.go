package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "pdfquery/internal/app"
	"pdfquery/internal/bootstrap"
	"pdfquery/internal/pkg/pdfextract"
	"pdfquery/internal/platform/rabbitmq"
	"pdfquery/internal/repository"
	"pdfquery/internal/transport/http/handler"
	"pdfquery/internal/transport/http/middleware"
)

// NewRouter builds the single routing table for the whole service.
func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	userRepo := repository.NewUserRepository(app.MySQL)
	docRepo := repository.NewDocumentRepository(app.MySQL)
	queryLogRepo := repository.NewQueryLogRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Sessions,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	docService := appsvc.NewDocumentService(docRepo, app.Uploads, app.Registry)
	queryService := appsvc.NewQueryService(
		docService,
		app.Uploads,
		pdfextract.Extractor{},
		app.Registry,
		app.Engine,
		app.Sessions,
		rabbitmq.NewQueryLogPublisher(app.MQConn, app.Config.RabbitMQ.QueryLogQueue),
		queryLogRepo,
	)

	authHandler := handler.NewAuthHandler(authService)
	docHandler := handler.NewDocumentHandler(docService, queryService, app.Config.MaxUploadBytes())
	queryHandler := handler.NewQueryHandler(queryService)
	healthHandler := handler.NewHealthHandler(app)

	router.GET("/healthz", healthHandler.Check)
	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)

	authed := router.Group("/")
	authed.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret, app.Sessions))
	authed.GET("/logout", authHandler.Logout)
	authed.GET("/dashboard", docHandler.Dashboard)
	authed.POST("/upload_pdf", docHandler.Upload)
	authed.POST("/process_pdf/:id", queryHandler.Process)
	authed.POST("/query_pdf", queryHandler.Query)
	authed.POST("/delete_pdf/:id", docHandler.Delete)
	authed.GET("/pdf/:id", docHandler.Serve)

	return router
}
