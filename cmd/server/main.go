package main

import (
	"context"
	"log"

	"survey-bot-backend/internal/cache"
	"survey-bot-backend/internal/config"
	"survey-bot-backend/internal/database"
	"survey-bot-backend/internal/handlers"
	"survey-bot-backend/internal/middleware"
	"survey-bot-backend/internal/services"
	"survey-bot-backend/internal/telegram"
	"survey-bot-backend/internal/ws"

	_ "survey-bot-backend/docs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Survey Bot API
// @version         1.0
// @description     Survey authoring with conditional question flow, answer collection and Telegram bot integration
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter "Bearer {token}"

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	graphCache := cache.NewMemoryGraphCache()
	stateStore := cache.NewMemoryStateStore()
	rdb, err := cache.NewClient(context.Background(), cfg)
	if err != nil {
		log.Printf("redis unavailable, using in-memory caches: %v", err)
	} else if rdb != nil {
		defer rdb.Close()
		graphCache = cache.NewRedisGraphCache(rdb, cfg.GraphCacheTTL)
		stateStore = cache.NewRedisStateStore(rdb, "bot:state:", cfg.BotStateTTL)
	}

	hub := ws.NewHub()

	authService := services.NewAuthService(db, cfg.JWTSecret)
	flowService := services.NewFlowService(db, graphCache)
	surveyService := services.NewSurveyService(db, flowService)
	responseService := services.NewResponseService(db, flowService, hub)
	tgUserService := services.NewTelegramUserService(db)

	authHandler := handlers.NewAuthHandler(authService)
	surveyHandler := handlers.NewSurveyHandler(surveyService, flowService)
	questionHandler := handlers.NewQuestionHandler(surveyService)
	responseHandler := handlers.NewResponseHandler(responseService)
	settingsHandler := handlers.NewSettingsHandler(authService, telegram.ResolveBotUsername)
	tgUserHandler := handlers.NewTelegramUserHandler(tgUserService)
	wsHandler := handlers.NewWSHandler(hub, authService, surveyService)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Bot-API-Key"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws/survey/:id", wsHandler.HandleWebSocket)

	botManager := telegram.NewBotManager(
		authService, surveyService, responseService, tgUserService, stateStore,
		cfg.WebhookBaseURL, cfg.BotAPIKey,
		cfg.BotRefresh,
	)
	if cfg.WebhookBaseURL != "" {
		botManager.Start()
		defer botManager.Stop()
	} else {
		log.Println("WEBHOOK_BASE_URL not set, bot manager disabled")
	}
	r.POST("/webhook/bot/:secret", botManager.HandleWebhook)

	jwt := middleware.JWTAuth(authService)
	flex := middleware.FlexAuth(authService, cfg.BotAPIKey)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		settings := api.Group("/settings")
		settings.Use(jwt)
		{
			settings.GET("", settingsHandler.GetSettings)
			settings.PUT("", settingsHandler.UpdateSettings)
		}

		surveys := api.Group("/surveys")
		{
			surveys.GET("", jwt, surveyHandler.ListSurveys)
			surveys.POST("", jwt, surveyHandler.CreateSurvey)
			surveys.POST("/import", jwt, surveyHandler.ImportSurvey)
			surveys.GET("/:id", jwt, surveyHandler.GetSurvey)
			surveys.PUT("/:id", jwt, surveyHandler.UpdateSurvey)
			surveys.DELETE("/:id", jwt, surveyHandler.DeleteSurvey)
			surveys.POST("/:id/questions", jwt, questionHandler.CreateQuestion)
			surveys.PUT("/:id/reorder", jwt, questionHandler.ReorderQuestions)
			surveys.GET("/:id/flow/validate", jwt, surveyHandler.ValidateFlow)
			surveys.POST("/:id/activate", jwt, surveyHandler.ActivateSurvey)
			surveys.POST("/:id/deactivate", jwt, surveyHandler.DeactivateSurvey)
			surveys.GET("/:id/export", jwt, surveyHandler.ExportSurvey)
			surveys.GET("/:id/responses", jwt, responseHandler.ListResponses)
			surveys.POST("/:id/responses", flex, responseHandler.StartResponse)
		}

		questions := api.Group("/questions")
		questions.Use(jwt)
		{
			questions.PUT("/:id", questionHandler.UpdateQuestion)
			questions.DELETE("/:id", questionHandler.DeleteQuestion)
			questions.PUT("/:id/flow", questionHandler.UpdateQuestionFlow)
		}

		responses := api.Group("/responses")
		{
			responses.GET("/:id", jwt, responseHandler.GetResponse)
			responses.GET("/:id/current", flex, responseHandler.CurrentQuestion)
			responses.POST("/:id/answers", flex, responseHandler.SubmitAnswer)
		}

		tgUsers := api.Group("/telegram-users")
		tgUsers.Use(middleware.BotAuth(cfg.BotAPIKey))
		{
			tgUsers.POST("", tgUserHandler.GetOrCreateUser)
			tgUsers.GET("/:telegram_id/history", tgUserHandler.GetHistory)
		}

		internal := api.Group("/internal")
		internal.Use(middleware.BotAuth(cfg.BotAPIKey))
		{
			internal.GET("/bot-tokens", settingsHandler.GetBotTokens)
			internal.GET("/surveys/code/:code", surveyHandler.GetSurveyByCode)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
