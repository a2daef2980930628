package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/templui/fileshare/internal/ctxkeys"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/service"
	"github.com/templui/fileshare/internal/validation"
)

// multipartOverhead is the slack allowed on top of the file size for
// boundaries, part headers and small form fields.
const multipartOverhead = 1 << 20

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{
		fileService: fileService,
	}
}

// Upload streams the "file" part of a multipart request into the file
// service without buffering it. An optional owner_id (query parameter, or
// a form field sent before the file part) uploads on behalf of another user.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	caller, _ := ctxkeys.Caller(r.Context())

	limit := h.fileService.MaxUploadSize() + multipartOverhead
	if r.ContentLength > limit {
		writeServiceError(w, r, service.ErrTooLarge, "")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart/form-data body")
		return
	}

	ownerID := r.URL.Query().Get("owner_id")

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "missing file part")
			return
		}
		if err != nil {
			writeServiceError(w, r, fmt.Errorf("read multipart body: %w", err), "")
			return
		}

		switch part.FormName() {
		case "owner_id":
			value, err := io.ReadAll(io.LimitReader(part, 256))
			_ = part.Close()
			if err != nil {
				writeServiceError(w, r, err, "")
				return
			}
			ownerID = string(value)
			continue
		case "file":
		default:
			_ = part.Close()
			continue
		}

		file, err := h.uploadPart(r, caller, ownerID, part)
		_ = part.Close()
		if err != nil {
			writeServiceError(w, r, err, "")
			return
		}

		writeJSON(w, http.StatusCreated, h.response(file))
		return
	}
}

func (h *FileHandler) uploadPart(r *http.Request, caller model.Caller, ownerID string, part *multipart.Part) (*model.File, error) {
	contentType, content, err := validation.ContentType(part.Header.Get("Content-Type"), part)
	if err != nil {
		return nil, fmt.Errorf("read file part: %w", err)
	}

	return h.fileService.Upload(r.Context(), caller, service.UploadInput{
		OwnerID:     ownerID,
		Name:        part.FileName(),
		ContentType: contentType,
		Size:        -1,
		Content:     content,
	})
}

// List returns the caller's own files.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := ctxkeys.Caller(r.Context())

	files, err := h.fileService.ListByOwner(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, h.responses(files))
}

// ListForUser returns the files of the user in the path. Admins may list
// anyone; users only themselves.
func (h *FileHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := ctxkeys.Caller(r.Context())

	files, err := h.fileService.ListForOwner(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, h.responses(files))
}

func (h *FileHandler) Show(w http.ResponseWriter, r *http.Request) {
	caller, _ := ctxkeys.Caller(r.Context())
	fileID := r.PathValue("id")

	file, err := h.fileService.File(r.Context(), caller, fileID)
	if err != nil {
		writeServiceError(w, r, err, fileID)
		return
	}

	writeJSON(w, http.StatusOK, h.response(file))
}

func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	caller, _ := ctxkeys.Caller(r.Context())
	fileID := r.PathValue("id")

	file, content, err := h.fileService.Download(r.Context(), caller, fileID)
	if err != nil {
		writeServiceError(w, r, err, fileID)
		return
	}

	serveContent(w, file, content)
}

// DownloadShared serves a file by share token. No authentication.
func (h *FileHandler) DownloadShared(w http.ResponseWriter, r *http.Request) {
	file, content, err := h.fileService.DownloadShared(r.Context(), r.PathValue("token"))
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	serveContent(w, file, content)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := ctxkeys.Caller(r.Context())
	fileID := r.PathValue("id")

	err := h.fileService.Delete(r.Context(), caller, fileID)
	if err != nil {
		writeServiceError(w, r, err, fileID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) ToggleShare(w http.ResponseWriter, r *http.Request) {
	caller, _ := ctxkeys.Caller(r.Context())
	fileID := r.PathValue("id")

	file, err := h.fileService.ToggleShare(r.Context(), caller, fileID)
	if err != nil {
		writeServiceError(w, r, err, fileID)
		return
	}

	writeJSON(w, http.StatusOK, h.response(file))
}

// GenerateShareLink returns the share URL, enabling sharing if needed.
func (h *FileHandler) GenerateShareLink(w http.ResponseWriter, r *http.Request) {
	caller, _ := ctxkeys.Caller(r.Context())
	fileID := r.PathValue("id")

	url, err := h.fileService.GenerateShareLink(r.Context(), caller, fileID)
	if err != nil {
		writeServiceError(w, r, err, fileID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"share_url": url})
}

func (h *FileHandler) DisableShare(w http.ResponseWriter, r *http.Request) {
	caller, _ := ctxkeys.Caller(r.Context())
	fileID := r.PathValue("id")

	file, err := h.fileService.DisableShare(r.Context(), caller, fileID)
	if err != nil {
		writeServiceError(w, r, err, fileID)
		return
	}

	writeJSON(w, http.StatusOK, h.response(file))
}

func (h *FileHandler) response(file *model.File) FileResponse {
	return FileResponse{
		ID:           file.ID,
		OwnerID:      file.OwnerID,
		Name:         file.Name,
		ContentType:  file.ContentType,
		Size:         file.Size,
		ShareEnabled: file.ShareEnabled,
		ShareURL:     h.fileService.ShareURL(file),
		CreatedAt:    file.CreatedAt,
		UpdatedAt:    file.UpdatedAt,
	}
}

func (h *FileHandler) responses(files []*model.File) []FileResponse {
	out := make([]FileResponse, 0, len(files))
	for _, file := range files {
		out = append(out, h.response(file))
	}
	return out
}

// serveContent streams the blob as an attachment. Once the header is
// written, copy failures can only be logged.
func serveContent(w http.ResponseWriter, file *model.File, content io.ReadCloser) {
	defer func() {
		closeErr := content.Close()
		if closeErr != nil {
			slog.Error("failed to close file content", "error", closeErr, "file_id", file.ID)
		}
	}()

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	_, err := io.Copy(w, content)
	if err != nil {
		slog.Error("failed to stream file content", "error", err, "file_id", file.ID)
	}
}
