package router

import (
	"net/http"

	gridHandler "soundgrid/internal/grid"
	"soundgrid/internal/grid/service"
	"soundgrid/middleware"
	"soundgrid/socket"
)

// Options carries the middleware settings from config.
type Options struct {
	AllowedOrigins []string
	JWTSecret      string
}

func Setup(gridService *service.GridService, hub *socket.Hub, opts Options) http.Handler {
	mux := http.NewServeMux()

	h := gridHandler.NewGridHandler(gridService)
	auth := middleware.AuthMiddleware(opts.JWTSecret)

	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("GET /grids", h.ListGrids)
	mux.HandleFunc("GET /grids/{id}", h.GetGrid)
	mux.Handle("POST /grids", auth(http.HandlerFunc(h.CreateGrid)))
	mux.Handle("PUT /grids/{id}", auth(http.HandlerFunc(h.UpdateGrid)))
	mux.Handle("DELETE /grids/{id}", auth(http.HandlerFunc(h.DeleteGrid)))

	// Change feed
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r)
	})

	return middleware.LoggingMiddleware(middleware.CORSMiddleware(opts.AllowedOrigins)(mux))
}
