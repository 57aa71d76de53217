package cmd

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/ftahirops/airtop/engine"
	"github.com/ftahirops/airtop/model"
)

// newRouter exposes the pipeline's current state over HTTP.
func newRouter(pipe *engine.Pipeline) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", pipe.Metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler(pipe)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/snapshot", snapshotHandler(pipe)).Methods(http.MethodGet)
	api.HandleFunc("/banner", bannerHandler(pipe)).Methods(http.MethodGet)
	api.HandleFunc("/sections/{id}", sectionHandler(pipe)).Methods(http.MethodGet)
	return r
}

// newHTTPHandler wraps the router with CORS. No origins means any origin.
func newHTTPHandler(pipe *engine.Pipeline, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(newRouter(pipe))
}

func serveHTTP(addr string, pipe *engine.Pipeline, origins []string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHTTPHandler(pipe, origins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("airtop: http exporter on %s", addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("airtop: http exporter: %v", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("airtop: encode response: %v", err)
	}
}

func healthHandler(pipe *engine.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scale, gen := pipe.Current()
		batches, stales := pipe.Metrics.Counters()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "ok",
			"version":    Version,
			"scale":      scale,
			"generation": gen,
			"session":    pipe.Session(),
			"batches":    batches,
			"stale":      stales,
			"tracked":    pipe.Tracked(),
		})
	}
}

func snapshotHandler(pipe *engine.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upd := pipe.Snapshot()
		if upd == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no data yet"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session": pipe.Session(),
			"banner":  pipe.Banner(),
			"update":  upd,
		})
	}
}

func bannerHandler(pipe *engine.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := pipe.Banner()
		if b == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no average yet"})
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func sectionHandler(pipe *engine.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if sec, ok := findSection(pipe.Snapshot(), id); ok {
			writeJSON(w, http.StatusOK, sec)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown section " + id})
	}
}

func findSection(upd *model.Update, id string) (model.Section, bool) {
	if upd == nil {
		return model.Section{}, false
	}
	for _, sec := range upd.Sections {
		if sec.ID == id {
			return sec, true
		}
	}
	return model.Section{}, false
}
