package uploads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Matches the storage service's accepted formats.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".webp": true,
}

const (
	maxFilesPerRequest = 5
	maxUploadMemory    = 32 << 20
)

// Storage is the forwarding target for validated uploads.
type Storage interface {
	Store(ctx context.Context, filename string, content io.Reader) (string, error)
}

type Handler struct {
	storage Storage
	logger  *logrus.Logger
}

// NewHandler builds the upload proxy. A nil storage means the external
// service is unconfigured; requests then fail with a server error.
func NewHandler(storage Storage, logger *logrus.Logger) *Handler {
	return &Handler{storage: storage, logger: logger}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/uploads", h.Upload).Methods("POST")
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		h.logger.Error("File storage service is not configured")
		h.respondWithError(w, http.StatusInternalServerError, "File storage is not configured on the server")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.respondWithError(w, http.StatusBadRequest, "No files uploaded")
		return
	}
	if len(files) > maxFilesPerRequest {
		h.respondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("At most %d files per request", maxFilesPerRequest))
		return
	}

	for _, header := range files {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedExtensions[ext] {
			h.respondWithError(w, http.StatusBadRequest,
				fmt.Sprintf("File type %s is not allowed", ext))
			return
		}
	}

	locators := make([]string, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			h.logger.WithError(err).Error("Failed to open uploaded file")
			h.respondWithError(w, http.StatusInternalServerError, "File upload failed")
			return
		}

		locator, err := h.storage.Store(r.Context(), header.Filename, file)
		file.Close()
		if err != nil {
			h.logger.WithError(err).WithField("filename", header.Filename).
				Error("Failed to forward file to storage service")
			h.respondWithError(w, http.StatusInternalServerError, "File upload failed")
			return
		}
		locators = append(locators, locator)
	}

	h.logger.WithField("count", len(locators)).Info("Files uploaded")
	h.respondWithJSON(w, http.StatusOK, locators)
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"message": message})
}
