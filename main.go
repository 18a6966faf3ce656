package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"roomchat-service/internal/config"
	"roomchat-service/internal/db"
	"roomchat-service/internal/handlers"
	"roomchat-service/internal/middleware"
	"roomchat-service/internal/observability"
	"roomchat-service/internal/presence"
	"roomchat-service/internal/rabbitmq"
	"roomchat-service/internal/repositories"
	"roomchat-service/internal/sweeper"
	"roomchat-service/internal/telemetry"
	"roomchat-service/internal/uploads"
	"roomchat-service/internal/ws"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing := observability.InitTracing("roomchat-service")
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "audit.roomchat", "roomchat-service", cfg.Environment)

	mediaStore, err := uploads.NewStore(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		log.Fatalf("failed to init upload store: %v", err)
	}

	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	presenceRepo := repositories.NewPresenceRepo(database)

	tracker := presence.NewTracker(presenceRepo, cfg.OnlineWindow, cfg.TypingDuration)
	hub := ws.NewHub()

	roomHandler := handlers.NewRoomHandler(roomRepo, cfg.TokenSecret, cfg.TokenTTL, audit)
	messageHandler := handlers.NewMessageHandler(messageRepo, tracker, hub)
	uploadHandler := handlers.NewUploadHandler(messageRepo, tracker, hub, mediaStore, cfg.MaxUploadBytes)
	presenceHandler := handlers.NewPresenceHandler(tracker, hub)
	roomWS := ws.NewRoomWebSocketHandler(hub, roomRepo, messageRepo, tracker, cfg.TokenSecret)

	sweep := sweeper.New(messageRepo, tracker, mediaStore, audit, cfg.MessageRetention, cfg.PresenceRetention, cfg.SweepInterval)
	sweep.Start()
	defer sweep.Stop()

	router := gin.New()

	// middlewares
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("roomchat-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	roomAuth := middleware.RoomSession(cfg.TokenSecret)

	router.POST("/rooms", roomHandler.CreateRoom)
	router.POST("/rooms/:room/join", roomHandler.JoinRoom)
	router.GET("/rooms/:room/messages", roomAuth, messageHandler.ListHistory)
	router.POST("/rooms/:room/messages", roomAuth, messageHandler.PostMessage)
	router.DELETE("/rooms/:room/messages/:message_id", roomAuth, messageHandler.DeleteMessage)
	router.POST("/rooms/:room/uploads", roomAuth, uploadHandler.Upload)
	router.POST("/rooms/:room/typing", roomAuth, presenceHandler.Typing)
	router.POST("/rooms/:room/ping", roomAuth, presenceHandler.Ping)
	router.GET("/rooms/:room/presence", roomAuth, presenceHandler.Who)

	router.GET("/ws/rooms/:room", roomWS.Handle)
	router.GET("/uploads/:name", uploadHandler.Serve)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, cfg.EnableDebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
