package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/insight-board-be/internal/auth"
	"github.com/isdelr/insight-board-be/internal/services"
)

// maxUploadBytes caps a single multipart upload held in memory before it
// spills to a temp file.
const maxUploadBytes = 32 << 20

// UploadHandler handles the data file upload relay.
type UploadHandler struct {
	uploads services.UploadServiceProvider
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploads services.UploadServiceProvider) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Upload accepts a multipart data file and stages it for the external
// analysis process. The relay only acknowledges receipt; it never inspects
// file content.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		respondError(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	file, header, err := r.FormFile("dataFile")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	upload, err := h.uploads.SaveUpload(claims.UserID, header.Filename, file)
	if err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Str("filename", header.Filename).Msg("Failed to stage upload")
		respondError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	log.Info().Int64("user_id", claims.UserID).Str("stored_name", upload.StoredName).Int64("size", upload.Size).Msg("Staged data file")
	respondJSON(w, http.StatusOK, map[string]string{"message": "File uploaded successfully"})
}
