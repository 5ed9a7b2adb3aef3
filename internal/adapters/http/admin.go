package httpadapter

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Catalog == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "document catalog is not configured"})
		return
	}
	query := r.URL.Query()
	limit, err := optionalInt(query.Get("limit"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a number"})
		return
	}
	offset, err := optionalInt(query.Get("offset"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "offset must be a number"})
		return
	}

	page, err := rt.deps.Catalog.List(r.Context(), domain.DocumentFilter{
		Search:      strings.TrimSpace(query.Get("search")),
		CountryCode: strings.ToUpper(strings.TrimSpace(query.Get("country"))),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Uploader == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "uploads are not configured"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.UploadMaxBytes+(1<<20))
	file, header, err := r.FormFile("document")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'document' is required"})
		return
	}
	defer file.Close()

	req := domain.UploadRequest{
		Filename:    header.Filename,
		Name:        strings.TrimSpace(r.FormValue("name")),
		CountryCode: strings.ToUpper(strings.TrimSpace(r.FormValue("country_code"))),
		Language:    strings.TrimSpace(r.FormValue("language")),
		Size:        header.Size,
		Body:        file,
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		job, err := rt.deps.Uploader.Enqueue(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, job)
		return
	}

	result, err := rt.deps.Uploader.Upload(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Catalog == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "document catalog is not configured"})
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}
	deleteFile, _ := strconv.ParseBool(r.URL.Query().Get("deleteFile"))

	if err := rt.deps.Catalog.Delete(r.Context(), id, deleteFile); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true, "file_deleted": deleteFile})
}

func (rt *Router) listMessages(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Messages == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "message history is not configured"})
		return
	}
	query := r.URL.Query()
	filter := domain.MessageFilter{
		Channel:   strings.TrimSpace(query.Get("channel")),
		Requester: strings.TrimSpace(query.Get("requester")),
	}
	if raw := strings.TrimSpace(query.Get("before")); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "before must be an RFC 3339 timestamp"})
			return
		}
		filter.Before = before
	}
	limit, err := optionalInt(query.Get("limit"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a number"})
		return
	}
	filter.Limit = limit

	page, err := rt.deps.Messages.Messages(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func optionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
