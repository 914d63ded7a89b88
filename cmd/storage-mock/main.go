package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// storage-mock is a development stand-in for the external file storage
// service. Files live in process memory; restarting loses everything.
type fileStore struct {
	mutex sync.RWMutex
	files map[string]storedFile
}

type storedFile struct {
	name string
	data []byte
}

func newFileStore() *fileStore {
	return &fileStore{files: make(map[string]storedFile)}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	store := newFileStore()
	port := getEnv("STORAGE_PORT", "8083")
	baseURL := getEnv("STORAGE_BASE_URL", "http://localhost:"+port)

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/files", storeFile(logger, store, baseURL)).Methods("POST")
	router.HandleFunc("/files/{id}", serveFile(logger, store)).Methods("GET")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.WithField("port", port).Info("Starting storage mock server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down storage mock server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server forced to shutdown")
	}

	logger.Info("Storage mock server gracefully stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "storage-mock",
	})
}

func storeFile(logger *logrus.Logger, store *fileStore, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			logger.WithError(err).Error("Failed to read uploaded file")
			respondWithError(w, http.StatusBadRequest, "Missing file field")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			logger.WithError(err).Error("Failed to read file body")
			respondWithError(w, http.StatusInternalServerError, "Failed to read file")
			return
		}

		id := uuid.New().String() + filepath.Ext(header.Filename)
		store.mutex.Lock()
		store.files[id] = storedFile{name: header.Filename, data: data}
		total := len(store.files)
		store.mutex.Unlock()

		logger.WithFields(logrus.Fields{
			"id":           id,
			"filename":     header.Filename,
			"size":         len(data),
			"total_stored": total,
		}).Info("File stored")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"url": fmt.Sprintf("%s/files/%s", baseURL, id),
		})
	}
}

func serveFile(logger *logrus.Logger, store *fileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		id := vars["id"]

		store.mutex.RLock()
		f, exists := store.files[id]
		store.mutex.RUnlock()

		if !exists {
			logger.WithField("id", id).Warn("File not found")
			respondWithError(w, http.StatusNotFound, "File not found")
			return
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", f.name))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(f.data)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
