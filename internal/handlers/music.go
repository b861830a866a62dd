package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"XmediaCenter/internal/middleware"
	"XmediaCenter/internal/service"
)

// MusicHandler — плейлисты, песни и счётчики воспроизведений.
type MusicHandler struct {
	PlaylistService *service.PlaylistService
	Logger          *zap.SugaredLogger
}

func NewMusicHandler(playlistService *service.PlaylistService, logger *zap.SugaredLogger) *MusicHandler {
	return &MusicHandler{PlaylistService: playlistService, Logger: logger}
}

type playlistRequest struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type songRequest struct {
	Path string `json:"path,omitempty"` // insert
	ID   int64  `json:"id,omitempty"`   // delete
	Src  int64  `json:"src,omitempty"`  // swap
	Dest int64  `json:"dest,omitempty"` // swap
}

func (h *MusicHandler) Playlists(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	lists, err := h.PlaylistService.ListPlaylists(r.Context(), uid)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, lists)
}

func (h *MusicHandler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	var req playlistRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	p, err := h.PlaylistService.CreatePlaylist(r.Context(), uid, req.Name, req.Description)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, p)
}

func (h *MusicHandler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	var req playlistRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	if err := h.PlaylistService.DeletePlaylist(r.Context(), uid, req.ID); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, nil)
}

func (h *MusicHandler) Playlist(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	pid, err := int64Param("id", chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	p, err := h.PlaylistService.Playlist(r.Context(), uid, pid)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, p)
}

// Songs возвращает страницу песен плейлиста (limit/offset в query).
func (h *MusicHandler) Songs(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	pid, err := int64Param("id", chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	offset, err := intQuery(r, "offset")
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	songs, err := h.PlaylistService.ListSongs(r.Context(), uid, pid, limit, offset)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, songs)
}

func (h *MusicHandler) InsertSong(w http.ResponseWriter, r *http.Request) {
	h.withSong(w, r, func(uid, pid int64, req songRequest) (any, error) {
		return h.PlaylistService.InsertSong(r.Context(), uid, pid, req.Path)
	})
}

func (h *MusicHandler) DeleteSong(w http.ResponseWriter, r *http.Request) {
	h.withSong(w, r, func(uid, pid int64, req songRequest) (any, error) {
		return nil, h.PlaylistService.DeleteSong(r.Context(), uid, pid, req.ID)
	})
}

// Swap меняет местами две песни плейлиста.
func (h *MusicHandler) Swap(w http.ResponseWriter, r *http.Request) {
	h.withSong(w, r, func(uid, pid int64, req songRequest) (any, error) {
		return nil, h.PlaylistService.Swap(r.Context(), uid, pid, req.Src, req.Dest)
	})
}

func (h *MusicHandler) PlayPlaylist(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	pid, err := int64Param("id", chi.URLParam(r, "id"))
	if err == nil {
		err = h.PlaylistService.IncreasePlayCount(r.Context(), uid, pid)
	}
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, nil)
}

func (h *MusicHandler) PlaySong(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	sid, err := int64Param("sid", chi.URLParam(r, "sid"))
	if err == nil {
		err = h.PlaylistService.IncreaseSongPlayCount(r.Context(), uid, sid)
	}
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, nil)
}

func (h *MusicHandler) Song(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	sid, err := int64Param("sid", chi.URLParam(r, "sid"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	v, err := h.PlaylistService.Song(r.Context(), uid, sid)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, v)
}

func (h *MusicHandler) Artwork(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	sid, err := int64Param("sid", chi.URLParam(r, "sid"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	art, err := h.PlaylistService.SongArtwork(r.Context(), uid, sid)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	serveImage(w, art)
}

func (h *MusicHandler) SongFile(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	sid, err := int64Param("sid", chi.URLParam(r, "sid"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	loc, e, err := h.PlaylistService.SongFile(r.Context(), uid, sid)
	if err == nil {
		err = serveFile(w, r, loc, e)
	}
	if err != nil {
		fail(w, h.Logger, r, err)
	}
}

func (h *MusicHandler) withSong(w http.ResponseWriter, r *http.Request, fn func(uid, pid int64, req songRequest) (any, error)) {
	uid, _ := middleware.GetUserIDFromContext(r.Context())
	pid, err := int64Param("id", chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	var req songRequest
	if err := decode(r, &req); err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	data, err := fn(uid, pid, req)
	if err != nil {
		fail(w, h.Logger, r, err)
		return
	}
	ok(w, data)
}
