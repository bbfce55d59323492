package main

import (
	"log"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/config"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/database"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/handlers"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/middleware"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/schedule"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/scheduler"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/services"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using process environment")
	}
	cfg := config.Load()
	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is not set")
	}

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	userService := services.NewUserService(db)
	disciplineService := services.NewDisciplineService(db)
	pollService := services.NewPollService(db)
	reportService := services.NewReportService(userService)

	client := telegram.NewClient(cfg.BotToken)

	chat, err := client.GetChat(cfg.ChatID)
	if err != nil {
		log.Fatalf("could not fetch chat info: %v", err)
	}
	if chat.Type != "group" && chat.Type != "supergroup" {
		log.Fatalf("only groups are supported, chat %d has type %q", chat.ID, chat.Type)
	}

	parser := schedule.NewParser(cfg.GroupID, cfg.TestMode)
	sched := scheduler.NewScheduler(client, cfg, pollService, disciplineService, parser)
	aggregator := services.NewAggregator(pollService, sched)

	updateHandler := telegram.NewUpdateHandler(
		client, telegram.NewStateManager(),
		userService, disciplineService, pollService, reportService, aggregator,
		cfg,
	)
	botManager := telegram.NewBotManager(client, updateHandler, cfg.BotToken, cfg.WebhookBaseURL, cfg.WebhookSecret)

	sched.Start()
	defer sched.Stop()

	botManager.Start()
	defer botManager.Stop()

	reportHandler := handlers.NewReportHandler(pollService, reportService)

	r := gin.Default()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.POST("/webhook/bot/:secret", botManager.HandleWebhook)

	api := r.Group("/api/v1")
	api.Use(middleware.APIKeyAuth(cfg.APIKey))
	{
		api.GET("/report/:period", reportHandler.GetReport)
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
