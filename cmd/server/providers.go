package main

import (
	"context"
	"database/sql"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"servly-chat-server/internal/config"
	"servly-chat-server/internal/handler"
	"servly-chat-server/internal/hub"
	"servly-chat-server/internal/repository/mongo"
	"servly-chat-server/internal/repository/postgres"
	"servly-chat-server/internal/service"
)

func providePostgresDB(cfg *config.Config) (*sql.DB, func(), error) {
	if err := postgres.RunMigrations(cfg.PostgresURL); err != nil {
		return nil, nil, err
	}
	db, err := postgres.NewDB(cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { db.Close() }
	return db, cleanup, nil
}

func provideMongoDB(ctx context.Context, cfg *config.Config) (*mongodriver.Database, func(), error) {
	db, err := mongo.NewDB(ctx, cfg.MongoURL, cfg.MongoDatabase)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { db.Client().Disconnect(ctx) }
	return db, cleanup, nil
}

func provideContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	return ctx, func() { cancel() }
}

func provideWebsocketHandler(h *hub.Hub, users service.IUserService, cfg *config.Config, logger *zap.Logger) *handler.WebsocketHandler {
	return handler.NewWebsocketHandler(h, users, cfg.JWTSecret, logger)
}
