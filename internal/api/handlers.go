package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"roofing-photo-sync/internal/auth"
	"roofing-photo-sync/internal/constant"
	"roofing-photo-sync/internal/model"
	"roofing-photo-sync/internal/service/photosync"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

const maxUploadBytes = 25 << 20

type photoView struct {
	LocalID     string     `json:"local_id"`
	FileName    string     `json:"file_name"`
	FileType    string     `json:"file_type"`
	FileSize    int64      `json:"file_size"`
	ContactID   string     `json:"contact_id"`
	ProjectID   *string    `json:"project_id,omitempty"`
	TenantID    string     `json:"tenant_id"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
	RemoteURL   *string    `json:"remote_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newPhotoView(e model.QueuedPhoto) photoView {
	v := photoView{
		LocalID:   e.LocalID,
		FileName:  e.FileName,
		FileType:  e.FileType,
		FileSize:  e.FileSize,
		ContactID: e.ContactID,
		ProjectID: e.ProjectID,
		TenantID:  e.TenantID,
		Status:    e.Status,
		Attempts:  e.Attempts,
		LastError: e.LastError,
		RemoteURL: e.RemoteURL,
		CreatedAt: time.Unix(e.CreatedAt, 0).UTC(),
	}
	if e.LastAttempt != nil {
		at := time.Unix(*e.LastAttempt, 0).UTC()
		v.LastAttempt = &at
	}
	return v
}

// handleEnqueuePhoto handles POST /photos as multipart form data.
func (s *Server) handleEnqueuePhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Form multipart tidak valid")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Field 'file' wajib diisi")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Gagal membaca file foto")
		return
	}

	meta, err := parseMetadata(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
		return
	}

	req := photosync.EnqueueRequest{
		File: model.Payload{
			Data:        data,
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
		},
		ContactID: r.FormValue("contact_id"),
		TenantID:  r.FormValue("tenant_id"),
		Metadata:  meta,
	}
	if projectID := r.FormValue("project_id"); projectID != "" {
		req.ProjectID = &projectID
	}

	localID, err := s.photos.Enqueue(r.Context(), req)
	if err != nil {
		slog.Error("Gagal memasukkan foto ke antrean", "error", err)
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"local_id": localID})
}

func parseMetadata(r *http.Request) (model.PhotoMetadata, error) {
	meta := model.PhotoMetadata{Notes: r.FormValue("notes")}

	for field, dst := range map[string]**float64{
		"latitude":  &meta.Latitude,
		"longitude": &meta.Longitude,
	} {
		raw := strings.TrimSpace(r.FormValue(field))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return meta, fmt.Errorf("nilai '%s' tidak valid: %q", field, raw)
		}
		*dst = &v
	}

	if raw := strings.TrimSpace(r.FormValue("captured_at")); raw != "" {
		capturedAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return meta, fmt.Errorf("nilai 'captured_at' harus RFC3339: %q", raw)
		}
		meta.CapturedAt = capturedAt
	}
	return meta, nil
}

// handleListPhotos handles GET /photos?status=.
func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", constant.PhotoStatusPending, constant.PhotoStatusSyncing, constant.PhotoStatusCompleted, constant.PhotoStatusFailed:
	default:
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, fmt.Sprintf("Status tidak dikenal: %q", status))
		return
	}

	entries, err := s.photos.List(r.Context(), status)
	if err != nil {
		slog.Error("Gagal mengambil daftar antrean", "error", err)
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Gagal mengambil daftar antrean")
		return
	}

	views := make([]photoView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newPhotoView(e))
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.photos.Stats(r.Context())
	if err != nil {
		slog.Error("Gagal menghitung statistik antrean", "error", err)
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Gagal menghitung statistik antrean")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRetryFailed(w http.ResponseWriter, r *http.Request) {
	reset, err := s.photos.RetryFailed(r.Context())
	if err != nil {
		slog.Error("Gagal mengulang foto yang gagal", "error", err)
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Gagal mengulang foto yang gagal")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"reset": reset})
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	localID := mux.Vars(r)["id"]

	if err := s.photos.Delete(r.Context(), localID); err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deadLetterView struct {
	Attempts     int       `json:"attempts"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Server) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	localID := mux.Vars(r)["id"]

	letters, err := s.photos.DeadLetters(r.Context(), localID)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message)
		return
	}

	views := make([]deadLetterView, 0, len(letters))
	for _, l := range letters {
		views = append(views, deadLetterView{
			Attempts:     l.Attempts,
			ErrorMessage: l.ErrorMessage,
			CreatedAt:    time.Unix(l.CreatedAt, 0).UTC(),
		})
	}
	respondJSON(w, http.StatusOK, views)
}

// handleSetSession handles PUT /session with the access token as a bearer
// credential.
func (s *Server) handleSetSession(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Header Authorization Bearer wajib diisi")
		return
	}

	if err := s.session.SetToken(strings.TrimSpace(token)); err != nil {
		slog.Warn("Token sesi ditolak", "error", err)
		message := "Token sesi tidak valid"
		if errors.Is(err, auth.ErrSessionExpired) {
			message = "Token sesi sudah kedaluwarsa"
		}
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	s.session.Clear()
	w.WriteHeader(http.StatusNoContent)
}
