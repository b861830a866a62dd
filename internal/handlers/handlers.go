package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"XmediaCenter/internal/config"
	"XmediaCenter/internal/middleware"
	"XmediaCenter/internal/service"
)

// APIPrefix — префикс всех маршрутов API.
const APIPrefix = "/xms/v1"

type Handler struct {
	Router chi.Router
}

// Services — сервисы, которые обслуживает HTTP-слой.
type Services struct {
	Users     *service.UserService
	Drive     *service.DriveService
	Shares    *service.ShareService
	Playlists *service.PlaylistService
	Tasks     *service.TaskService

	// Metrics отдаётся на /metrics; nil — маршрут не регистрируется.
	Metrics http.Handler
	// Version попадает в ответ /info.
	Version string
}

// NewHandler разводящий для хендлеров
func NewHandler(s Services, logger *zap.SugaredLogger, cfg *config.Config) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(cfg.AuthSecret))

	// Handlers
	userHandler := NewUserHandler(s.Users, logger, cfg)
	driveHandler := NewDriveHandler(s.Drive, logger, cfg)
	shareHandler := NewShareHandler(s.Shares, logger)
	musicHandler := NewMusicHandler(s.Playlists, logger)
	taskHandler := NewTaskHandler(s.Tasks, logger)

	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Route(APIPrefix, func(r chi.Router) {
		// Public routes
		r.Get("/info", func(w http.ResponseWriter, r *http.Request) {
			ok(w, map[string]any{"name": "XmediaCenter", "version": s.Version})
		})
		r.Post("/signup", userHandler.Signup)
		r.Post("/signin", userHandler.Signin)
		r.Post("/signout", userHandler.Signout)
		r.Get("/user/{uid}/info", userHandler.Info)
		r.Get("/user/{uid}/avatar", userHandler.Avatar)
		r.Get("/user/{uid}/headimg", userHandler.HeadImage)
		r.Get("/share/{token}", shareHandler.Resolve)
		r.Get("/share/{token}/file", shareHandler.File)
		r.Get("/share/{token}/dir", shareHandler.Dir)
		r.Get("/share/{token}/dir/file", shareHandler.DirFile)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			// User routes
			r.Get("/user/status", userHandler.Status)
			r.Post("/user/password", userHandler.ChangePassword)
			r.Post("/user/slogan", userHandler.UpdateSlogan)
			r.Post("/user/name", userHandler.UpdateName)
			r.Post("/user/avatar", userHandler.UpdateAvatar)
			r.Post("/user/headimg", userHandler.UpdateHeadImage)
			r.Delete("/user/{uid}", userHandler.Delete)

			// Drive routes
			r.Get("/drive/dir", driveHandler.Dir)
			r.Get("/drive/file", driveHandler.File)
			r.Post("/drive/mkdir", driveHandler.Mkdir)
			r.Post("/drive/rename", driveHandler.Rename)
			r.Post("/drive/move", driveHandler.Move)
			r.Post("/drive/copy", driveHandler.Copy)
			r.Post("/drive/delete", driveHandler.Delete)
			r.Post("/drive/upload", driveHandler.Upload)

			// Share routes
			r.Post("/share/create", shareHandler.Create)
			r.Post("/share/delete", shareHandler.Delete)
			r.Get("/share/list", shareHandler.List)

			// Music routes
			r.Get("/music/playlists", musicHandler.Playlists)
			r.Post("/music/playlist/create", musicHandler.CreatePlaylist)
			r.Post("/music/playlist/delete", musicHandler.DeletePlaylist)
			r.Get("/music/playlist/{id}", musicHandler.Playlist)
			r.Get("/music/playlist/{id}/songs", musicHandler.Songs)
			r.Post("/music/playlist/{id}/songs/insert", musicHandler.InsertSong)
			r.Post("/music/playlist/{id}/songs/delete", musicHandler.DeleteSong)
			r.Post("/music/playlist/{id}/songs/swap", musicHandler.Swap)
			r.Post("/music/playlist/{id}/play", musicHandler.PlayPlaylist)
			r.Get("/music/song/{sid}", musicHandler.Song)
			r.Post("/music/song/{sid}/play", musicHandler.PlaySong)
			r.Get("/music/song/{sid}/artwork", musicHandler.Artwork)
			r.Get("/music/song/{sid}/file", musicHandler.SongFile)

			// Task routes
			r.Get("/plugins", taskHandler.Plugins)
			r.Post("/task/create", taskHandler.Create)
			r.Get("/task/{id}", taskHandler.Get)
			r.Get("/tasks", taskHandler.List)
		})
	})

	return &Handler{Router: r}
}
