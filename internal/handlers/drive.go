package handlers

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/config"
	"XmediaCenter/internal/drive"
	"XmediaCenter/internal/middleware"
	"XmediaCenter/internal/service"
)

// DriveHandler — операции над диском текущего пользователя.
type DriveHandler struct {
	DriveService *service.DriveService
	Logger       *zap.SugaredLogger
	Config       *config.Config
}

func NewDriveHandler(driveService *service.DriveService, logger *zap.SugaredLogger, cfg *config.Config) *DriveHandler {
	return &DriveHandler{DriveService: driveService, Logger: logger, Config: cfg}
}

// PathRequest — тело запросов mkdir/rename/move/copy/delete.
type PathRequest struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"` // rename
	Dest string `json:"dest,omitempty"` // move, copy
}

func (h *DriveHandler) Dir(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	l, err := h.DriveService.List(r.Context(), uid, r.URL.Query().Get("path"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, l)
}

func (h *DriveHandler) Mkdir(w http.ResponseWriter, r *http.Request) {
	h.withPath(w, r, func(uid int64, req PathRequest) (any, error) {
		return h.DriveService.Mkdir(r.Context(), uid, req.Path)
	})
}

func (h *DriveHandler) Rename(w http.ResponseWriter, r *http.Request) {
	h.withPath(w, r, func(uid int64, req PathRequest) (any, error) {
		return h.DriveService.Rename(r.Context(), uid, req.Path, req.Name)
	})
}

func (h *DriveHandler) Move(w http.ResponseWriter, r *http.Request) {
	h.withPath(w, r, func(uid int64, req PathRequest) (any, error) {
		return h.DriveService.Move(r.Context(), uid, req.Path, req.Dest)
	})
}

func (h *DriveHandler) Copy(w http.ResponseWriter, r *http.Request) {
	h.withPath(w, r, func(uid int64, req PathRequest) (any, error) {
		return h.DriveService.Copy(r.Context(), uid, req.Path, req.Dest)
	})
}

func (h *DriveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.withPath(w, r, func(uid int64, req PathRequest) (any, error) {
		return nil, h.DriveService.Delete(r.Context(), uid, req.Path)
	})
}

// File отдаёт файл диска.
func (h *DriveHandler) File(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	loc, e, err := h.DriveService.FileRealpath(r.Context(), uid, r.URL.Query().Get("path"))
	if err == nil {
		err = serveFile(w, r, loc, e)
	}
	if err != nil {
		fail(w, h.Logger, r, err)
	}
}

// Upload принимает multipart/form-data и потоково пишет каждый файл в папку path.
func (h *DriveHandler) Upload(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	dir := r.URL.Query().Get("path")

	// Лимит общего тела запроса
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.UploadLimit()+1<<20)
	mr, err := r.MultipartReader()
	if err != nil {
		h.Logger.Warnw("Upload: invalid multipart form", "error", err)
		fail(w, h.Logger, r, apperr.Errorf(apperr.ErrInvalidArgument, "invalid multipart form"))
		return
	}

	var uploaded []drive.Entry
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if isBodyTooLarge(err) {
				err = apperr.Errorf(apperr.ErrInvalidArgument, "upload exceeds %d MB", h.Config.UploadMaxMB)
			} else {
				err = apperr.Errorf(apperr.ErrInvalidArgument, "invalid multipart form: %v", err)
			}
			fail(w, h.Logger, r, err)
			return
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		e, err := h.DriveService.Upload(r.Context(), uid, dir, part.FileName(), part)
		_ = part.Close()
		if err != nil {
			h.Logger.Warnw("Upload failed", "user_id", uid, "dir", dir, "name", part.FileName(), "error", err)
			fail(w, h.Logger, r, err)
			return
		}
		uploaded = append(uploaded, e)
	}
	if len(uploaded) == 0 {
		fail(w, h.Logger, r, apperr.Errorf(apperr.ErrInvalidArgument, "no files in request"))
		return
	}
	ok(w, uploaded)
}

func (h *DriveHandler) withPath(w http.ResponseWriter, r *http.Request, fn func(uid int64, req PathRequest) (any, error)) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	var req PathRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	data, err := fn(uid, req)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, data)
}
