package mongo

import (
	"Haven/internal/api/config"
	"Haven/internal/pkg/logger"
	"context"
	log "log/slog"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InitMongo 建立连接并返回 Database 引用，同时初始化 Schema
func InitMongo(cfg config.MongoConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 建立连接
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URL).
		SetMonitor(logger.NewMongoMonitor()),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "mongo connect")
	}

	// 检查连通性
	if err = client.Ping(ctx, nil); err != nil {
		return nil, pkgerrors.Wrap(err, "mongo ping")
	}

	db := client.Database(cfg.Database)

	// 消息幂等索引：同一 (thread, sender) 下 client_id 唯一
	if err = ensureMessageIndexes(ctx, db); err != nil {
		return nil, pkgerrors.Wrap(err, "mongo ensure indexes")
	}

	log.Info("MongoDB initialized successfully", "db", cfg.Database)
	return db, nil
}
