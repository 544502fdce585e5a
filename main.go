package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shapestore/shapestore/ingest"
	"github.com/shapestore/shapestore/metaindex"
	"github.com/shapestore/shapestore/storage"
)

func main() {
	_ = godotenv.Load()
	addr := getEnv("SHAPESTORE_ADDR", ":8000")
	relPath := getEnv("SHAPESTORE_SQL_DB", "shapestore.db")
	docPath := getEnv("SHAPESTORE_DOC_DB", "shapestore_docs.db")
	idxPath := getEnv("SHAPESTORE_INDEX_DB", "shapestore_index.db")
	level := getEnv("SHAPESTORE_LOG", "info")

	err := setupLogging(level)
	if err != nil {
		slog.Error("could not init logging", "err", err)
		return
	}

	rel, err := storage.NewSQLiteRelational(relPath)
	if err != nil {
		slog.Error("could not open relational store", "err", err)
		return
	}
	defer rel.Close()

	doc, err := storage.NewSQLiteDocument(docPath)
	if err != nil {
		slog.Error("could not open document store", "err", err)
		return
	}
	defer doc.Close()

	idx, err := metaindex.NewSQLite(idxPath)
	if err != nil {
		slog.Error("could not open metadata index", "err", err)
		return
	}
	defer idx.Close()

	pipeline := ingest.New(ingest.DefaultOptions(), ingest.Deps{
		Relational:  rel,
		Document:    doc,
		Persistence: idx,
	})

	reg := prometheus.NewRegistry()
	s := &server{pipeline: pipeline, metrics: newMetrics(reg)}
	router := newRouter(s, reg)

	slog.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		slog.Error("server stopped", "err", err)
	}
}

func setupLogging(level string) error {
	var logLevel slog.Level
	err := logLevel.UnmarshalText([]byte(level))
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
	return err
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
