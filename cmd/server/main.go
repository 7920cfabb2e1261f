package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	app, cleanup, err := InitializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer cleanup()
	defer app.Logger.Sync()

	// Hub runs its dispatch loop in its own goroutine.
	go app.Hub.Run()

	r := mux.NewRouter()

	// Realtime channel; credential checked at handshake time.
	r.HandleFunc("/ws", app.WS.HandleConnection).Methods("GET")

	// Read-side HTTP surface.
	app.API.Routes(r)

	app.Logger.Info("server starting", zap.String("addr", app.Config.HTTPAddr))
	if err := http.ListenAndServe(app.Config.HTTPAddr, r); err != nil {
		app.Logger.Fatal("server stopped", zap.Error(err))
	}
}
