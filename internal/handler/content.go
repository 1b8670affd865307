// Package handler contains HTTP handlers for the Heirloom API.
//
// This file implements content admission, listing, editing, and release.
// File-backed items (photos, videos) arrive as multipart/form-data; messages
// as JSON. Rejections carry the structured quota or size detail.
//
// Routes:
//   - POST   /vaults/{id}/contents                 -> Create
//   - GET    /vaults/{id}/contents                 -> List
//   - PUT    /vaults/{id}/contents/{contentID}     -> Update
//   - DELETE /vaults/{id}/contents/{contentID}     -> Delete
//   - GET    /vaults/{id}/contents/{contentID}/file -> FileURL
package handler

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/service"
	"github.com/google/uuid"
)

// Multipart parse limit; actual per-type ceilings are enforced downstream.
const maxUploadMemory = 32 << 20

// ContentHandler handles vault content HTTP requests.
type ContentHandler struct {
	contentService service.ContentService
	logger         *slog.Logger
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(contentService service.ContentService, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		logger:         logger,
	}
}

// RegisterRoutes registers content routes on the provided mux.
func (h *ContentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /vaults/{id}/contents", h.Create)
	mux.HandleFunc("GET /vaults/{id}/contents", h.List)
	mux.HandleFunc("PUT /vaults/{id}/contents/{contentID}", h.Update)
	mux.HandleFunc("DELETE /vaults/{id}/contents/{contentID}", h.Delete)
	mux.HandleFunc("GET /vaults/{id}/contents/{contentID}/file", h.FileURL)
}

// contentPayload is the wire shape of a content item.
type contentPayload struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	AlbumNumber int        `json:"album_number,omitempty"`
	Order       int        `json:"order"`
	Title       string     `json:"title,omitempty"`
	Body        string     `json:"body,omitempty"`
	SizeBytes   int64      `json:"size_bytes,omitempty"`
	DeliverAt   *time.Time `json:"deliver_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func contentToPayload(c domain.Content) contentPayload {
	return contentPayload{
		ID:          c.ID,
		Type:        string(c.Type),
		AlbumNumber: c.AlbumNumber,
		Order:       c.Order,
		Title:       c.Title,
		Body:        c.Body,
		SizeBytes:   c.SizeBytes,
		DeliverAt:   c.DeliverAt,
		CreatedAt:   c.CreatedAt,
	}
}

// countsPayload is the counts block of the list endpoint.
type countsPayload struct {
	Photos struct {
		Total  int `json:"total"`
		Album1 int `json:"album_1"`
		Album2 int `json:"album_2"`
		Album3 int `json:"album_3"`
		Album4 int `json:"album_4"`
	} `json:"photos"`
	Videos   int `json:"videos"`
	Messages int `json:"messages"`
}

func countsToPayload(s domain.QuotaSnapshot) countsPayload {
	var c countsPayload
	c.Photos.Total = s.PhotosTotal
	c.Photos.Album1 = s.PhotosPerAlbum[0]
	c.Photos.Album2 = s.PhotosPerAlbum[1]
	c.Photos.Album3 = s.PhotosPerAlbum[2]
	c.Photos.Album4 = s.PhotosPerAlbum[3]
	c.Videos = s.Videos
	c.Messages = s.Messages
	return c
}

// Create admits a new content item into the vault.
//
// multipart/form-data fields: type, album_number (photos), title, file.
// application/json body for messages: {type, title, body, deliver_at}.
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	vaultID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var params service.AddContentParams
	var file multipart.File

	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !isJSONContentType(contentType) {
		params, file, err = h.parseMultipartCreate(r, vaultID)
		if err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		if file != nil {
			defer file.Close()
		}
	} else {
		var req struct {
			Type      string     `json:"type"`
			Title     string     `json:"title"`
			Body      string     `json:"body"`
			DeliverAt *time.Time `json:"deliver_at"`
		}
		if err := decodeJSON(r, &req); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		params = service.AddContentParams{
			VaultID:   vaultID,
			Type:      domain.ContentType(req.Type),
			Title:     req.Title,
			Body:      req.Body,
			DeliverAt: req.DeliverAt,
		}
	}

	content, err := h.contentService.Add(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"data": contentToPayload(*content)})
}

// parseMultipartCreate extracts AddContentParams from a multipart upload.
func (h *ContentHandler) parseMultipartCreate(r *http.Request, vaultID uuid.UUID) (service.AddContentParams, multipart.File, error) {
	const op = "handler.content.create"

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return service.AddContentParams{}, nil, domain.Invalid(op, "Failed to parse multipart form")
	}

	params := service.AddContentParams{
		VaultID: vaultID,
		Type:    domain.ContentType(r.FormValue("type")),
		Title:   r.FormValue("title"),
		Body:    r.FormValue("body"),
	}

	if v := r.FormValue("album_number"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return service.AddContentParams{}, nil, domain.Invalid(op, "album_number must be a number")
		}
		params.AlbumNumber = n
	}

	if v := r.FormValue("deliver_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return service.AddContentParams{}, nil, domain.Invalid(op, "deliver_at must be RFC 3339")
		}
		params.DeliverAt = &t
	}

	file, header, err := r.FormFile("file")
	if err == http.ErrMissingFile {
		return params, nil, nil
	}
	if err != nil {
		return service.AddContentParams{}, nil, domain.Invalid(op, "Failed to read uploaded file")
	}

	params.File = file
	params.SizeBytes = header.Size
	params.MIMEType = header.Header.Get("Content-Type")
	return params, file, nil
}

// List returns the vault's items grouped by type and album, with counts.
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	vaultID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	contents, err := h.contentService.List(r.Context(), vaultID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	albums := make([][]contentPayload, domain.AlbumCount)
	for i := range contents.Photos {
		albums[i] = make([]contentPayload, 0, len(contents.Photos[i]))
		for _, c := range contents.Photos[i] {
			albums[i] = append(albums[i], contentToPayload(c))
		}
	}
	videos := make([]contentPayload, 0, len(contents.Videos))
	for _, c := range contents.Videos {
		videos = append(videos, contentToPayload(c))
	}
	messages := make([]contentPayload, 0, len(contents.Messages))
	for _, c := range contents.Messages {
		messages = append(messages, contentToPayload(c))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"counts": countsToPayload(contents.Counts),
		"data": map[string]interface{}{
			"photos":   albums,
			"videos":   videos,
			"messages": messages,
		},
	})
}

// Update edits an item in place. Type and album membership are immutable.
func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	vaultID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	contentID, err := pathUUID(r, "contentID")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := service.ReplaceContentParams{
		VaultID:   vaultID,
		ContentID: contentID,
	}

	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !isJSONContentType(contentType) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("handler.content.update", "Failed to parse multipart form"))
			return
		}
		if v := r.FormValue("title"); v != "" {
			params.Title = &v
		}
		if v := r.FormValue("body"); v != "" {
			params.Body = &v
		}
		file, header, ferr := r.FormFile("file")
		if ferr == nil {
			defer file.Close()
			params.File = file
			params.SizeBytes = header.Size
			params.MIMEType = header.Header.Get("Content-Type")
		} else if ferr != http.ErrMissingFile {
			ErrorResponse(w, r, h.logger, domain.Invalid("handler.content.update", "Failed to read uploaded file"))
			return
		}
	} else {
		var req struct {
			Title *string `json:"title"`
			Body  *string `json:"body"`
		}
		if err := decodeJSON(r, &req); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		params.Title = req.Title
		params.Body = req.Body
	}

	content, err := h.contentService.Replace(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"data": contentToPayload(*content)})
}

// Delete releases an item, freeing exactly one unit of its scope.
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vaultID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	contentID, err := pathUUID(r, "contentID")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.contentService.Release(r.Context(), contentID, vaultID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// FileURL returns a time-limited access URL for a stored file.
func (h *ContentHandler) FileURL(w http.ResponseWriter, r *http.Request) {
	vaultID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	contentID, err := pathUUID(r, "contentID")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	url, err := h.contentService.ContentFileURL(r.Context(), contentID, vaultID, 15*time.Minute)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]string{"url": url}})
}

// isJSONContentType reports whether the Content-Type header denotes JSON.
func isJSONContentType(ct string) bool {
	return strings.HasPrefix(ct, "application/json")
}
