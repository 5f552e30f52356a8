package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/room"
)

type Deps struct {
	Rooms   *room.Service
	WS      http.Handler
	Origins []string
	Log     *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	log := d.Log.With(zap.String("component", "http"))
	r := chi.NewRouter()

	r.Use(Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.Origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/rooms", ListRooms(d.Rooms, log))
	r.Get("/rooms/{id}", GetRoom(d.Rooms, log))

	// Authenticated inside the handler; browsers pass the token as a query parameter.
	r.Get("/ws", d.WS.ServeHTTP)
	return r
}
