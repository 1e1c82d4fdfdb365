package httpapi

import (
	"errors"
	"net/http"

	"loadtracker.app/internal/audit"
	"loadtracker.app/internal/auth"
	"loadtracker.app/internal/upload"
)

// handleUploadImage accepts a multipart form with an "image" field. The
// body is already capped by the outer middleware; the upload service
// enforces the per-file limit and content-type whitelist.
func (a *API) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensurePermissions(w, r, auth.PermUploadsCreate) {
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "multipart field 'image' is required")
		return
	}
	defer file.Close()

	stored, err := a.uploads.SaveImage(file)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedType):
			writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, upload.ErrTooLarge):
			writeError(w, r, http.StatusRequestEntityTooLarge, err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	_ = audit.Event(r.Context(), "upload.image", map[string]any{
		"filename": stored.Filename,
		"original": header.Filename,
		"size":     stored.Size,
	})
	writeJSON(w, http.StatusCreated, stored)
}
