package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/config"
	"XmediaCenter/internal/middleware"
	"XmediaCenter/internal/service"
)

// максимальный размер загружаемой картинки профиля
const maxImageBody = 5<<20 + 64<<10

// UserHandler — регистрация, вход и профиль пользователя.
type UserHandler struct {
	UserService *service.UserService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

func NewUserHandler(userService *service.UserService, logger *zap.SugaredLogger, cfg *config.Config) *UserHandler {
	return &UserHandler{UserService: userService, Logger: logger, Config: cfg}
}

// Credentials — тело signup/signin.
type Credentials struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Slogan   string `json:"slogan,omitempty"`
}

// Signup регистрирует пользователя и сразу выставляет cookie авторизации.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := decode(r, &req); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	if req.Password == "" {
		fail(w, h.Logger, r, apperr.Errorf(apperr.ErrInvalidArgument, "empty password"))
		return
	}
	user, err := h.UserService.Register(r.Context(), req.Name, req.Password, req.Slogan)
	if err != nil {
		h.Logger.Warnw("Signup failed", "name", req.Name, "error", err)
		fail(w, h.Logger, r, err)
		return
	}
	if err := middleware.SetLoginCookie(w, user.ID, h.Config.AuthSecret); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, user)
}

// Signin проверяет пароль и выставляет cookie авторизации.
func (h *UserHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := decode(r, &req); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	user, err := h.UserService.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	if err := middleware.SetLoginCookie(w, user.ID, h.Config.AuthSecret); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, user)
}

func (h *UserHandler) Signout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearLoginCookie(w)
	ok(w, nil)
}

// Status возвращает текущего пользователя.
func (h *UserHandler) Status(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	user, err := h.UserService.Get(r.Context(), uid)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, user)
}

// Info — публичный профиль пользователя.
func (h *UserHandler) Info(w http.ResponseWriter, r *http.Request) {
	uid, err := int64Param("uid", chi.URLParam(r, "uid"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	user, err := h.UserService.Get(r.Context(), uid)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, user)
}

func (h *UserHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	uid, err := int64Param("uid", chi.URLParam(r, "uid"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	art, err := h.UserService.Avatar(r.Context(), uid)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	serveImage(w, art)
}

func (h *UserHandler) HeadImage(w http.ResponseWriter, r *http.Request) {
	uid, err := int64Param("uid", chi.URLParam(r, "uid"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	art, err := h.UserService.HeadImage(r.Context(), uid)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	serveImage(w, art)
}

// ChangePassword меняет пароль текущего пользователя.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	var req struct {
		Old string `json:"old"`
		New string `json:"new"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	if err := h.UserService.ChangePassword(r.Context(), uid, req.Old, req.New); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, nil)
}

func (h *UserHandler) UpdateSlogan(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	var req struct {
		Slogan string `json:"slogan"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	if err := h.UserService.UpdateSlogan(r.Context(), uid, req.Slogan); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, nil)
}

func (h *UserHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	if err := h.UserService.UpdateName(r.Context(), uid, req.Name); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, nil)
}

// UpdateAvatar принимает картинку телом запроса.
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, h.UserService.UpdateAvatar)
}

func (h *UserHandler) UpdateHeadImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, h.UserService.UpdateHeadImage)
}

func (h *UserHandler) updateImage(w http.ResponseWriter, r *http.Request, update func(ctx context.Context, id int64, data []byte) error) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBody))
	if err != nil {
		if isBodyTooLarge(err) {
			err = apperr.Errorf(apperr.ErrInvalidArgument, "image is too large")
		}
		fail(w, h.Logger, r, err)
		return
	}
	if err := update(r.Context(), uid, data); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, nil)
}

// Delete удаляет пользователя вместе с диском и всеми записями.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requester, _ := middleware.GetUserIDFromContext(r.Context())
	uid, err := int64Param("uid", chi.URLParam(r, "uid"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	if err := h.UserService.Delete(r.Context(), requester, uid); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	if requester == uid {
		middleware.ClearLoginCookie(w)
	}
	ok(w, nil)
}
