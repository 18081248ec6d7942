package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/pitfolio/src/config"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/services"
	"github.com/username/pitfolio/src/utils"
)

type UploadHandler struct {
	reportService services.ReportService
}

func NewUploadHandler(service services.ReportService) *UploadHandler {
	return &UploadHandler{
		reportService: service,
	}
}

// HandleUpload accepts a multipart form with a "file" field holding one
// broker export and a "source" field naming the broker it came from.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "userID", userID, "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		logger.L.Warn("Uploaded file too large", "userID", userID, "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	source := r.FormValue("source")
	if source == "" {
		utils.SendJSONError(w, "Missing 'source' field naming the broker the file came from", http.StatusBadRequest)
		return
	}

	logger.L.Info("Processing upload request", "userID", userID, "source", source, "filename", fileHeader.Filename)
	result, err := h.reportService.ProcessUpload(file, userID, source)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownSource):
			utils.SendJSONError(w, fmt.Sprintf("Unknown source %q", source), http.StatusBadRequest)
		case errors.Is(err, services.ErrParsingFailed):
			logger.L.Warn("Upload parsing failed", "userID", userID, "source", source, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error parsing file: %v", err), http.StatusBadRequest)
		case errors.Is(err, services.ErrAggregation):
			logger.L.Warn("Upload aggregation failed", "userID", userID, "source", source, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error aggregating transactions in file: %v", err), http.StatusBadRequest)
		default:
			logger.L.Error("Internal error processing upload", "userID", userID, "source", source, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding JSON response for upload result", "userID", userID, "error", err)
	}
}
