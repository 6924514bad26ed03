package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"recap-service/internal/config"
	"recap-service/internal/db"
	"recap-service/internal/event"
	"recap-service/internal/handlers"
	"recap-service/internal/notify"
	"recap-service/internal/repository"
	"recap-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// logPublisher stands in for the AMQP publisher when RabbitMQ is not
// configured: events are logged and dropped.
type logPublisher struct {
	logger *slog.Logger
}

func (p *logPublisher) Publish(eventType string, payload interface{}) error {
	p.logger.Debug("event dropped, RabbitMQ not configured", "type", eventType)
	return nil
}

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if cfg.MongoDB.URI == "" {
		log.Fatal("MONGO_URI is required")
	}
	db.InitMongo(cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	database := db.Client.Database(cfg.MongoDB.Database)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// RabbitMQ event publisher
	var publisher notify.Publisher
	var amqpPublisher *event.EventPublisher
	if cfg.RabbitMQ.URI != "" && cfg.RabbitMQ.Exchange != "" {
		var err error
		amqpPublisher, err = event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	} else {
		log.Println("RabbitMQ not configured, events will not be published")
		publisher = &logPublisher{logger: logger}
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Catalog
	questionRepo := repository.NewQuestionRepository(database, logger)
	questionService := service.NewQuestionService(questionRepo)
	questionHandler := handlers.NewQuestionHandler(questionService)

	// Daily lifecycle
	activeRepo := repository.NewActiveRepository(database, logger)
	archiveRepo := repository.NewArchiveRepository(database, logger)
	answerRepo := repository.NewAnswerRepository(database)
	dailyService := service.NewDailyService(questionRepo, activeRepo, archiveRepo, answerRepo, logger)
	dailyHandler := handlers.NewDailyHandler(dailyService)

	// Notifications
	flagStore := notify.NewRedisFlagStore(redisClient)
	scheduler := notify.NewScheduler(flagStore, publisher, cfg.Notify.ReminderInterval, logger)
	defer scheduler.Close()
	notifyHandler := handlers.NewNotifyHandler(scheduler)

	publicQuestion := r.Group("/public/recap/question")
	{
		publicQuestion.GET("/", func(c *gin.Context) {
			questionHandler.ListQuestions(c)
			publisher.Publish("recap.question.list", nil)
		})
		publicQuestion.GET("/:id", func(c *gin.Context) {
			questionHandler.GetQuestion(c)
			publisher.Publish("recap.question.get", gin.H{"id": c.Param("id")})
		})
	}

	protectedQuestion := r.Group("/protected/recap/question")
	protectedQuestion.Use(requireUserID())
	{
		protectedQuestion.POST("/", questionHandler.CreateQuestion)
		protectedQuestion.PUT("/:id", questionHandler.UpdateQuestion)
		protectedQuestion.DELETE("/:id", questionHandler.DeactivateQuestion)
		protectedQuestion.POST("/bulk", questionHandler.ImportQuestions)
	}

	setupDailyRoutes(r, dailyHandler, publisher)
	setupNotifyRoutes(r, notifyHandler)

	r.Run(":" + cfg.Server.Port)
}

func setupDailyRoutes(r *gin.Engine, dailyHandler *handlers.DailyHandler, publisher notify.Publisher) {
	protectedDaily := r.Group("/protected/recap/daily")
	protectedDaily.Use(requireUserID())
	protectedDaily.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[DAILY] %v | %3d | %13v | %15s | %-7s %#v\n%s",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			param.StatusCode,
			param.Latency,
			param.ClientIP,
			param.Method,
			param.Path,
			param.ErrorMessage,
		)
	}))
	{
		protectedDaily.GET("/", func(c *gin.Context) {
			dailyHandler.SelectDaily(c)
			publisher.Publish("recap.selection.served", gin.H{
				"user_id": c.GetHeader("X-User-ID"),
			})
		})
		protectedDaily.POST("/answer", func(c *gin.Context) {
			dailyHandler.SubmitAnswer(c)
			publisher.Publish("recap.answer.submitted", gin.H{
				"user_id": c.GetHeader("X-User-ID"),
			})
		})
		protectedDaily.POST("/migrate", func(c *gin.Context) {
			dailyHandler.RunDailyMigration(c)
			publisher.Publish("recap.migration.completed", gin.H{
				"user_id": c.GetHeader("X-User-ID"),
			})
		})
		protectedDaily.GET("/progress", dailyHandler.GetDailyProgress)
	}
}

func setupNotifyRoutes(r *gin.Engine, notifyHandler *handlers.NotifyHandler) {
	protectedNotify := r.Group("/protected/recap/notify")
	protectedNotify.Use(requireUserID())
	{
		protectedNotify.POST("/permission", notifyHandler.ReportPermission)
		protectedNotify.GET("/status", notifyHandler.GetStatus)
		protectedNotify.GET("/settings-prompt", notifyHandler.ShouldPromptSettings)
		protectedNotify.POST("/settings-prompt/seen", notifyHandler.MarkSettingsAlertSeen)
	}
}

func requireUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_USER_ID",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
