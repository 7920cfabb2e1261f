//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"servly-chat-server/internal/config"
	"servly-chat-server/internal/handler"
	"servly-chat-server/internal/hub"
	"servly-chat-server/internal/logging"
	"servly-chat-server/internal/registry"
	"servly-chat-server/internal/repository/mongo"
	"servly-chat-server/internal/repository/postgres"
	"servly-chat-server/internal/service"
)

// InitializeApp creates a new application.
func InitializeApp() (*App, func(), error) {
	wire.Build(
		config.Load,
		logging.New,
		// Database & Context Providers
		wire.NewSet(
			provideContext,
			providePostgresDB,
			provideMongoDB,
		),
		// Repository Providers
		wire.NewSet(
			postgres.NewUserRepository,
			wire.Bind(new(service.IUserRepository), new(*postgres.UserRepository)),

			postgres.NewBookingRepository,
			wire.Bind(new(service.IBookingRepository), new(*postgres.BookingRepository)),

			mongo.NewMessageRepository,
			wire.Bind(new(service.IMessageRepository), new(*mongo.MessageRepository)),
		),
		// Service Providers
		wire.NewSet(
			service.NewUserService,
			wire.Bind(new(service.IUserService), new(*service.UserService)),

			service.NewConversationService,
			wire.Bind(new(service.IConversationService), new(*service.ConversationService)),
		),
		// Realtime Providers
		wire.NewSet(
			registry.New,
			hub.NewHub,
			provideWebsocketHandler,
			handler.NewAPIHandler,
		),
		// App Provider
		wire.NewSet(
			wire.Struct(new(App), "*"),
		),
	)
	return nil, nil, nil
}
