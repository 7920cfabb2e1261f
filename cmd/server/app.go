package main

import (
	"go.uber.org/zap"

	"servly-chat-server/internal/config"
	"servly-chat-server/internal/handler"
	"servly-chat-server/internal/hub"
)

// App is the main application container.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Hub    *hub.Hub
	WS     *handler.WebsocketHandler
	API    *handler.APIHandler
}
