package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"XmediaCenter/internal/middleware"
	"XmediaCenter/internal/service"
)

// TaskHandler — запуск плагинов и чтение журналов задач.
type TaskHandler struct {
	TaskService *service.TaskService
	Logger      *zap.SugaredLogger
}

func NewTaskHandler(taskService *service.TaskService, logger *zap.SugaredLogger) *TaskHandler {
	return &TaskHandler{TaskService: taskService, Logger: logger}
}

// TaskRequest — тело task/create. Args — JSON-массив аргументов обработчика.
type TaskRequest struct {
	Plugin  string          `json:"plugin"`
	Handler string          `json:"handler"`
	Args    json.RawMessage `json:"args,omitempty"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	var req TaskRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	id, err := h.TaskService.Start(r.Context(), uid, req.Plugin, req.Handler, string(req.Args))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, map[string]int64{"id": id})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	id, err := int64Param("id", chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	t, err := h.TaskService.Get(r.Context(), uid, id)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, t)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	tasks, err := h.TaskService.ListByOwner(r.Context(), uid)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, tasks)
}

func (h *TaskHandler) Plugins(w http.ResponseWriter, r *http.Request) {
	ok(w, h.TaskService.Plugins())
}
