package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/negroni"

	"github.com/shapestore/shapestore/apispec"
	"github.com/shapestore/shapestore/ingest"
	"github.com/shapestore/shapestore/metaindex"
	"github.com/shapestore/shapestore/structure"
)

type server struct {
	pipeline *ingest.Pipeline
	metrics  *metrics
}

func newRouter(s *server, reg *prometheus.Registry) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/", s.root).Methods("GET")
	router.HandleFunc("/api/upload", s.upload).Methods("POST")
	router.HandleFunc("/api/upload/batch", s.uploadBatch).Methods("POST")
	router.HandleFunc("/api/search/media", s.search(metaindex.KindMedia)).Methods("GET")
	router.HandleFunc("/api/search/json", s.search(metaindex.KindJSON)).Methods("GET")
	router.HandleFunc("/api/search/documents", s.search(metaindex.KindDocument)).Methods("GET")
	router.HandleFunc("/api/stats", s.stats).Methods("GET")
	router.HandleFunc("/api/schemas/{name}", s.schema).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.Use(logMiddleware)
	return router
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := negroni.NewResponseWriter(w)
		next.ServeHTTP(ww, r)
		slog.Info("request", "method", r.Method, "uri", r.RequestURI, "status", ww.Status())
	})
}

func (s *server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "shapestore",
		"endpoints": []string{
			"POST /api/upload",
			"POST /api/upload/batch",
			"GET /api/search/media",
			"GET /api/search/json",
			"GET /api/search/documents",
			"GET /api/stats",
			"GET /api/schemas/{name}",
			"GET /metrics",
		},
	})
}

func (s *server) upload(w http.ResponseWriter, r *http.Request) {
	filename, contentType, body, err := readUploadedFile(r, "file")
	if err != nil {
		s.metrics.failures.WithLabelValues("read").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.pipeline.ProcessUpload(r.Context(), filename, contentType, body)
	if err != nil {
		s.uploadError(w, err)
		return
	}

	s.metrics.uploads.WithLabelValues(res.Type).Inc()
	if res.SchemaDecision != nil {
		s.metrics.decisions.WithLabelValues(string(res.SchemaDecision.StorageType)).Inc()
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) uploadBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		s.metrics.failures.WithLabelValues("read").Inc()
		writeError(w, http.StatusBadRequest, "could not parse multipart form")
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	results := make([]any, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			results = append(results, batchFailure(h.Filename, err))
			continue
		}
		body, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			results = append(results, batchFailure(h.Filename, err))
			continue
		}

		res, err := s.pipeline.ProcessUpload(r.Context(), h.Filename, h.Header.Get("Content-Type"), body)
		if err != nil {
			s.metrics.failures.WithLabelValues("process").Inc()
			results = append(results, batchFailure(h.Filename, err))
			continue
		}
		s.metrics.uploads.WithLabelValues(res.Type).Inc()
		if res.SchemaDecision != nil {
			s.metrics.decisions.WithLabelValues(string(res.SchemaDecision.StorageType)).Inc()
		}
		results = append(results, res)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_files": len(headers),
		"results":     results,
	})
}

func readUploadedFile(r *http.Request, field string) (filename, contentType string, body []byte, err error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		return "", "", nil, fmt.Errorf("missing %q form field: %w", field, err)
	}
	defer f.Close()

	body, err = io.ReadAll(f)
	if err != nil {
		return "", "", nil, err
	}
	return header.Filename, header.Header.Get("Content-Type"), body, nil
}

func batchFailure(filename string, err error) map[string]any {
	return map[string]any{
		"status":   "error",
		"filename": filename,
		"error":    err.Error(),
	}
}

func (s *server) search(kind metaindex.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.searches.Inc()

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			limit = n
		}

		f := metaindex.Filter{
			Kind:             kind,
			Query:            r.URL.Query().Get("q"),
			CategoryOrSchema: r.URL.Query().Get("category"),
			Limit:            limit,
		}
		if f.CategoryOrSchema == "" {
			f.CategoryOrSchema = r.URL.Query().Get("schema")
		}

		entries, err := s.pipeline.Search(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if entries == nil {
			entries = []metaindex.Entry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"results": entries,
			"count":   len(entries),
		})
	}
}

func (s *server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.pipeline.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *server) schema(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	d, ok := s.pipeline.Decision(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown schema "+name)
		return
	}
	writeJSON(w, http.StatusOK, apispec.Export(d))
}

func (s *server) uploadError(w http.ResponseWriter, err error) {
	var ute *ingest.UnsupportedTypeError
	var iae *structure.InconsistentArrayError
	var eie *structure.EmptyInputError
	switch {
	case errors.As(err, &ute):
		s.metrics.failures.WithLabelValues("sniff").Inc()
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &iae), errors.As(err, &eie):
		s.metrics.failures.WithLabelValues("analyze").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.metrics.failures.WithLabelValues("process").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("could not encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": msg})
}
