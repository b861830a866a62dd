package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"XmediaCenter/internal/drive"
	"XmediaCenter/internal/middleware"
	"XmediaCenter/internal/service"
)

// ShareHandler — выдача ссылок и публичный доступ по ним.
type ShareHandler struct {
	ShareService *service.ShareService
	Logger       *zap.SugaredLogger
}

func NewShareHandler(shareService *service.ShareService, logger *zap.SugaredLogger) *ShareHandler {
	return &ShareHandler{ShareService: shareService, Logger: logger}
}

type shareRequest struct {
	Path  string `json:"path,omitempty"`
	Token string `json:"id,omitempty"`
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	var req shareRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	link, err := h.ShareService.Create(r.Context(), uid, req.Path)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, link)
}

func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	var req shareRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	if err := h.ShareService.Delete(r.Context(), uid, req.Token); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, nil)
}

func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	links, err := h.ShareService.ListByOwner(r.Context(), uid)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, links)
}

// Resolve описывает цель ссылки.
func (h *ShareHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	info, err := h.ShareService.Resolve(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, info)
}

// File отдаёт файл, на который указывает ссылка.
func (h *ShareHandler) File(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func() (drive.Location, drive.Entry, error) {
		return h.ShareService.FileRealpath(r.Context(), chi.URLParam(r, "token"))
	})
}

// Dir читает папку внутри общей папки.
func (h *ShareHandler) Dir(w http.ResponseWriter, r *http.Request) {
	l, err := h.ShareService.ListDir(r.Context(), chi.URLParam(r, "token"), r.URL.Query().Get("path"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, l)
}

// DirFile отдаёт файл внутри общей папки.
func (h *ShareHandler) DirFile(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func() (drive.Location, drive.Entry, error) {
		return h.ShareService.FileInDir(r.Context(), chi.URLParam(r, "token"), r.URL.Query().Get("path"))
	})
}

func (h *ShareHandler) serve(w http.ResponseWriter, r *http.Request, find func() (drive.Location, drive.Entry, error)) {
	loc, e, err := find()
	if err == nil {
		err = serveFile(w, r, loc, e)
	}
	if err != nil {
		fail(w, h.Logger, r, err)
	}
}
