package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	commonauth "github.com/keeeal/quoth/server/common/auth"
	"github.com/keeeal/quoth/server/common/infra/cache"
	"github.com/keeeal/quoth/server/common/infra/db"
	"github.com/keeeal/quoth/server/common/infra/mq"
	"github.com/keeeal/quoth/server/common/infra/object"
	"github.com/keeeal/quoth/server/quoth/api"
	"github.com/keeeal/quoth/server/quoth/repository"
	"github.com/keeeal/quoth/server/quoth/service"
)

type Server struct {
	HTTPServer *http.Server
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	MQConn     *amqp.Connection
	Publisher  *service.AMQPPublisher
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gateway := service.NewGatewayClient(cfg.GatewayEndpoint)
	limiter := service.NewRetryLimiter()
	embedder := service.NewEmbeddingClient(cfg.EmbedEndpoint, cfg.EmbedModel, cfg.EmbedToken, cfg.EmbedDim, limiter)

	var (
		pool      *pgxpool.Pool
		redisC    *redis.Client
		mqConn    *amqp.Connection
		publisher *service.AMQPPublisher
		archive   *service.ArchiveService
		index     *service.MemoryIndex
		err       error
	)

	if cfg.UseMQ {
		mqConn, err = mq.NewConnection(cfg.AMQPURL)
		if err != nil {
			return nil, fmt.Errorf("initialize amqp: %w", err)
		}
		publisher, err = service.NewAMQPPublisher(mqConn)
		if err != nil {
			return nil, fmt.Errorf("initialize amqp publisher: %w", err)
		}
	}

	if cfg.MemoryOnly {
		index = service.NewMemoryIndex()
	} else {
		pool, err = db.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres: %w", err)
		}
		repo, err := repository.NewMessageRepository(pool, cfg.EmbedDim)
		if err != nil {
			return nil, fmt.Errorf("initialize message repository: %w", err)
		}
		if err := repo.Init(ctx); err != nil {
			return nil, fmt.Errorf("initialize message schema: %w", err)
		}

		var mirror *service.AttachmentMirror
		if cfg.MirrorAttachments {
			minioClient, err := object.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
			if err != nil {
				return nil, fmt.Errorf("initialize minio: %w", err)
			}
			if err := object.EnsureBucket(ctx, minioClient, cfg.MinioBucket); err != nil {
				return nil, fmt.Errorf("ensure minio bucket: %w", err)
			}
			mirror = service.NewAttachmentMirror(minioClient, cfg.MinioBucket)
		}

		archive = service.NewArchiveService(repo, embedder, gateway, asPublisher(publisher), mirror)

		if cfg.EmbedCacheEnabled {
			redisC = cache.NewClient(cfg.RedisAddr)
			if err := cache.Ping(ctx, redisC); err != nil {
				return nil, fmt.Errorf("ping redis: %w", err)
			}
			archive.UseQueryEmbedder(service.NewEmbeddingCache(embedder, redisC, cfg.EmbedCacheTTL))
		}
	}

	hub := service.NewHub()
	bot := service.NewBotService(archive, index, gateway, service.BotConfig{
		QuothEmoji:   cfg.QuothEmoji,
		ClosestEmoji: cfg.ClosestEmoji,
		ReactEmoji:   cfg.ReactEmoji,
		Banlist:      cfg.Banlist,
	}, asPublisher(publisher), hub)

	auth := commonauth.NewService(cfg.JWTSecret, cfg.JWTTTLMinutes, cfg.AdminPasswordHash)
	h := api.NewHandler(archive, index, bot, hub, auth, cfg.Banlist)
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		HTTPServer: httpServer,
		Pool:       pool,
		Redis:      redisC,
		MQConn:     mqConn,
		Publisher:  publisher,
	}, nil
}

// asPublisher avoids storing a typed nil in the EventPublisher interface
// when MQ is disabled.
func asPublisher(p *service.AMQPPublisher) service.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.MQConn != nil {
		_ = s.MQConn.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	return s.HTTPServer.Shutdown(ctx)
}
