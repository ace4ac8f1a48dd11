package main

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.yaml
var openapiYAML []byte

// routes wires middlewares and endpoints.
func (a *App) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResp{Status: "ok"})
	})
	r.Get("/readyz", a.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=60")
		_, _ = w.Write(openapiYAML)
	})

	r.Mount("/swagger", httpSwagger.Handler(
		httpSwagger.URL("/api/openapi.yaml"),
	))

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", a.handleRegister)
		api.Post("/auth/login", a.handleLogin)

		api.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware)
			pr.Get("/me", a.handleMe)

			pr.Route("/farms", func(fr chi.Router) {
				fr.Get("/", a.handleListFarms)
				fr.Post("/", a.handleCreateFarm)
				fr.Route("/{id}", func(one chi.Router) {
					one.Get("/", a.handleGetFarm)
					one.Put("/", a.handleUpdateFarm)
					one.Delete("/", a.handleDeleteFarm)
					one.Get("/ndvi", a.handleFarmNDVI)
					one.Get("/ndvi-chart", a.handleFarmNDVIChart)
					one.Get("/weather", a.handleFarmWeather)
				})
			})
		})
	})

	return r
}

// handleReady reports 503 until the store answers and the predictor can run.
func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, statusResp{Status: "unavailable", Error: "store: " + err.Error()})
		return
	}
	if err := a.forecast.Predictor().Ready(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, statusResp{Status: "unavailable", Error: "predictor: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResp{Status: "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
