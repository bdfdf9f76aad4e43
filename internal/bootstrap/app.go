package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pdfquery/internal/ai"
	"pdfquery/internal/cache"
	"pdfquery/internal/config"
	"pdfquery/internal/engine"
	"pdfquery/internal/index"
	"pdfquery/internal/model"
	mysqlClient "pdfquery/internal/platform/mysql"
	rabbitmqClient "pdfquery/internal/platform/rabbitmq"
	redisClient "pdfquery/internal/platform/redis"
	"pdfquery/internal/repository"
	"pdfquery/internal/storage"
	"pdfquery/internal/worker"
)

type App struct {
	Config   *config.Config
	MySQL    *gorm.DB
	Redis    *redis.Client
	MQConn   *amqp.Connection
	Uploads  *storage.Uploads
	Registry *index.Registry
	Engine   engine.Engine
	Sessions *cache.SessionCache
	Worker   *worker.QueryLogPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.Document{}, &model.QueryLog{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	uploads, err := storage.NewUploads(cfg.Storage.UploadDir)
	if err != nil {
		return nil, err
	}

	eng := engine.NewRAG(
		ai.NewOpenAICompatibleClient(),
		ai.EmbeddingConfig{BaseURL: cfg.LLM.BaseURL, APIKey: cfg.LLM.APIKey, Model: cfg.LLM.EmbeddingModel},
		ai.ChatConfig{BaseURL: cfg.LLM.BaseURL, APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model},
		cfg.LLM.TopK,
	)

	registry, err := index.NewRegistry(cfg.Storage.IndexDir, eng)
	if err != nil {
		return nil, err
	}

	sessions := cache.NewSessionCache(redisCli, time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute)

	queryLogRepo := repository.NewQueryLogRepository(mysqlDB)
	logWorker := worker.NewQueryLogPersistWorker(mqConn, queryLogRepo, cfg.RabbitMQ.QueryLogQueue)
	if err := logWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start query log worker failed: %w", err)
	}

	return &App{
		Config:    cfg,
		MySQL:     mysqlDB,
		Redis:     redisCli,
		MQConn:    mqConn,
		Uploads:   uploads,
		Registry:  registry,
		Engine:    eng,
		Sessions:  sessions,
		Worker:    logWorker,
		StartedAt: time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Worker != nil {
		a.Worker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
