package consumable

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// maxUploadSize bounds bill uploads; high-resolution phone photos can be large
const maxUploadSize = int64(50 << 20) // 50MB

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes a JSON error response with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a successful JSON response
func writeJSON(w http.ResponseWriter, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleHealth reports liveness; the store is probed with a listing
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.ListConsumables(); err != nil {
		slog.Error("Health check failed", "error", err)
		jsonError(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleListConsumables returns all consumables ordered by normalized key
func (s *Server) handleListConsumables(w http.ResponseWriter, r *http.Request) {
	consumables, err := s.service.ListConsumables()
	if err != nil {
		slog.Error("Error listing consumables", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, consumables)
}

// handleDuplicateGroups returns groups of records with similar display names
func (s *Server) handleDuplicateGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.service.DuplicateGroups()
	if err != nil {
		slog.Error("Error building duplicate report", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, groups)
}

// handleUploadBill processes a bill upload in aggregate mode
func (s *Server) handleUploadBill(w http.ResponseWriter, r *http.Request) {
	s.handleBillUpload(w, r, s.service.ProcessBill)
}

// handleSeedCatalog processes a bill upload in catalog-seed mode
func (s *Server) handleSeedCatalog(w http.ResponseWriter, r *http.Request) {
	s.handleBillUpload(w, r, s.service.SeedCatalog)
}

// handleBillUpload reads the multipart bill payload, rejects empty uploads,
// and runs the given reconciliation mode
func (s *Server) handleBillUpload(w http.ResponseWriter, r *http.Request, process func(ctx context.Context, filename string, data []byte, contentType string) ([]*Consumable, error)) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if err.Error() == "http: no such file" {
			errorMsg = "No file was selected. Please choose a bill image to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	if len(data) == 0 {
		jsonError(w, "Uploaded bill is empty", http.StatusBadRequest)
		return
	}

	contentType := contentTypeFor(header.Header.Get("Content-Type"), header.Filename)

	consumables, err := process(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing bill", "filename", header.Filename, "error", err)
		if errors.Is(err, ErrDuplicateKey) {
			jsonError(w, "A concurrent update conflicted; please retry", http.StatusConflict)
			return
		}
		jsonError(w, "Error processing bill", http.StatusInternalServerError)
		return
	}

	writeJSON(w, consumables)
}

// contentTypeFor normalizes the declared content type, falling back to the
// file extension when the client did not send one
func contentTypeFor(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
