package service

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/drive"
	"XmediaCenter/internal/events"
	"XmediaCenter/internal/media"
	"XmediaCenter/internal/metrics"
	"XmediaCenter/internal/model"
	"XmediaCenter/internal/repo"
)

// SongView — песня плейлиста вместе с тегами файла.
type SongView struct {
	model.Song
	Owner   int64  `json:"owner"`
	Mime    string `json:"mime,omitempty"`
	Missing bool   `json:"missing,omitempty"`
	media.Tags
}

// PlaylistService управляет плейлистами, порядком песен и счётчиками воспроизведений.
type PlaylistService struct {
	playlists repo.PlaylistRepository
	songs     repo.SongRepository
	counts    repo.PlayCountRepository
	resolver  *drive.Resolver
	tags      media.Extractor
	artworks  *media.Artworks
	events    *events.Emitter
	metrics   metrics.Ops
	logger    *zap.SugaredLogger
}

// PlaylistDeps — зависимости PlaylistService.
type PlaylistDeps struct {
	Playlists repo.PlaylistRepository
	Songs     repo.SongRepository
	Counts    repo.PlayCountRepository
	Resolver  *drive.Resolver
	Tags      media.Extractor
	Artworks  *media.Artworks
	Events    *events.Emitter
	Metrics   metrics.Ops
	Logger    *zap.SugaredLogger
}

func NewPlaylistService(d PlaylistDeps) *PlaylistService {
	if d.Tags == nil {
		d.Tags = media.TagExtractor{}
	}
	if d.Artworks == nil {
		d.Artworks = media.NewArtworks(d.Tags, "", d.Logger)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Noop{}
	}
	return &PlaylistService{
		playlists: d.Playlists,
		songs:     d.Songs,
		counts:    d.Counts,
		resolver:  d.Resolver,
		tags:      d.Tags,
		artworks:  d.Artworks,
		events:    d.Events,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
}

// CreatePlaylist создаёт плейлист. Имя уникально в пределах владельца.
func (s *PlaylistService) CreatePlaylist(ctx context.Context, owner int64, name, description string) (_ *model.Playlist, err error) {
	defer metrics.Track(s.metrics, "playlist.create", time.Now(), &err)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Errorf(apperr.ErrInvalidArgument, "empty playlist name")
	}
	if _, err := s.resolver.DriveRoot(ctx, owner); err != nil {
		return nil, err
	}
	p := &model.Playlist{OwnerID: owner, Name: name, Description: description}
	if err := s.playlists.Create(ctx, p); err != nil {
		return nil, err
	}
	s.emit(ctx, events.PlaylistCreated, p, nil)
	return p, nil
}

// DeletePlaylist удаляет плейлист с песнями. Счётчики воспроизведений остаются.
func (s *PlaylistService) DeletePlaylist(ctx context.Context, requester, id int64) (err error) {
	defer metrics.Track(s.metrics, "playlist.delete", time.Now(), &err)

	p, err := s.owned(ctx, requester, id)
	if err != nil {
		return err
	}
	if err := s.playlists.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, events.PlaylistDeleted, p, nil)
	return nil
}

func (s *PlaylistService) ListPlaylists(ctx context.Context, owner int64) ([]model.Playlist, error) {
	return s.playlists.ListByOwner(ctx, owner)
}

// Playlist возвращает сведения о плейлисте владельца.
func (s *PlaylistService) Playlist(ctx context.Context, requester, id int64) (*model.Playlist, error) {
	return s.owned(ctx, requester, id)
}

// InsertSong добавляет в плейлист файл rel из диска владельца.
func (s *PlaylistService) InsertSong(ctx context.Context, requester, playlistID int64, rel string) (_ *model.Song, err error) {
	defer metrics.Track(s.metrics, "playlist.insert", time.Now(), &err)

	p, err := s.owned(ctx, requester, playlistID)
	if err != nil {
		return nil, err
	}
	loc, err := s.resolver.Resolve(ctx, p.OwnerID, rel)
	if err != nil {
		return nil, err
	}
	e, err := drive.Stat(loc)
	if err != nil {
		return nil, err
	}
	if e.IsDir() {
		return nil, apperr.Errorf(apperr.ErrNotFound, "file %q", loc.Rel)
	}
	song, err := s.songs.Insert(ctx, p.ID, p.OwnerID, loc.Rel)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.PlaylistChanged, p, map[string]any{"op": "insert", "song": song.ID})
	return song, nil
}

// DeleteSong убирает песню из плейлиста.
func (s *PlaylistService) DeleteSong(ctx context.Context, requester, playlistID, songID int64) (err error) {
	defer metrics.Track(s.metrics, "playlist.delete_song", time.Now(), &err)

	p, err := s.owned(ctx, requester, playlistID)
	if err != nil {
		return err
	}
	if err := s.songs.Delete(ctx, playlistID, songID); err != nil {
		return err
	}
	s.emit(ctx, events.PlaylistChanged, p, map[string]any{"op": "delete", "song": songID})
	return nil
}

// ListSongs возвращает песни по убыванию ключа сортировки с тегами файлов.
// limit <= 0 — без ограничения.
func (s *PlaylistService) ListSongs(ctx context.Context, requester, playlistID int64, limit, offset int) ([]SongView, error) {
	p, err := s.owned(ctx, requester, playlistID)
	if err != nil {
		return nil, err
	}
	songs, err := s.songs.ListByPlaylist(ctx, playlistID, limit, offset)
	if err != nil {
		return nil, err
	}
	root, err := s.resolver.DriveRoot(ctx, p.OwnerID)
	if err != nil {
		return nil, err
	}
	out := make([]SongView, 0, len(songs))
	for _, song := range songs {
		out = append(out, s.view(root, p.OwnerID, song))
	}
	return out, nil
}

// Swap обменивает ключи сортировки двух песен одного плейлиста.
func (s *PlaylistService) Swap(ctx context.Context, requester, playlistID, srcID, destID int64) (err error) {
	defer metrics.Track(s.metrics, "playlist.swap", time.Now(), &err)

	src, err := s.songs.Get(ctx, srcID)
	if err != nil {
		return err
	}
	dest, err := s.songs.Get(ctx, destID)
	if err != nil {
		return err
	}
	if src.PlaylistID != playlistID || dest.PlaylistID != playlistID {
		return apperr.Errorf(apperr.ErrInvalidArgument, "songs %d and %d are not both in playlist %d", srcID, destID, playlistID)
	}
	p, err := s.owned(ctx, requester, src.PlaylistID)
	if err != nil {
		return err
	}
	if _, _, err := s.songs.Swap(ctx, srcID, destID); err != nil {
		return err
	}
	s.emit(ctx, events.PlaylistChanged, p, map[string]any{"op": "swap", "src": srcID, "dest": destID})
	return nil
}

// IncreasePlayCount увеличивает счётчик воспроизведений плейлиста.
func (s *PlaylistService) IncreasePlayCount(ctx context.Context, requester, playlistID int64) error {
	if _, err := s.owned(ctx, requester, playlistID); err != nil {
		return err
	}
	return s.playlists.IncrementPlays(ctx, playlistID)
}

// IncreaseSongPlayCount увеличивает счётчик файла песни. Запись счётчика
// должна уже существовать: она создаётся при добавлении песни.
func (s *PlaylistService) IncreaseSongPlayCount(ctx context.Context, requester, songID int64) error {
	song, p, err := s.ownedSong(ctx, requester, songID)
	if err != nil {
		return err
	}
	return s.counts.Increment(ctx, p.OwnerID, song.Path)
}

// PlayCount возвращает счётчик воспроизведений пути rel владельца.
func (s *PlaylistService) PlayCount(ctx context.Context, owner int64, rel string) (*model.PlayCount, error) {
	return s.counts.Get(ctx, owner, rel)
}

// Song возвращает песню с тегами.
func (s *PlaylistService) Song(ctx context.Context, requester, songID int64) (*SongView, error) {
	song, p, err := s.ownedSong(ctx, requester, songID)
	if err != nil {
		return nil, err
	}
	root, err := s.resolver.DriveRoot(ctx, p.OwnerID)
	if err != nil {
		return nil, err
	}
	v := s.view(root, p.OwnerID, *song)
	return &v, nil
}

// SongArtwork возвращает обложку песни; при любой ошибке извлечения — обложку по умолчанию.
func (s *PlaylistService) SongArtwork(ctx context.Context, requester, songID int64) (media.Artwork, error) {
	song, p, err := s.ownedSong(ctx, requester, songID)
	if err != nil {
		return media.Artwork{}, err
	}
	loc, err := s.resolver.Resolve(ctx, p.OwnerID, song.Path)
	if err != nil {
		return media.Artwork{}, err
	}
	return s.artworks.For(loc.Abs), nil
}

// SongFile возвращает файл песни для отдачи клиенту.
func (s *PlaylistService) SongFile(ctx context.Context, requester, songID int64) (drive.Location, drive.Entry, error) {
	song, p, err := s.ownedSong(ctx, requester, songID)
	if err != nil {
		return drive.Location{}, drive.Entry{}, err
	}
	loc, err := s.resolver.Resolve(ctx, p.OwnerID, song.Path)
	if err != nil {
		return drive.Location{}, drive.Entry{}, err
	}
	e, err := requireFile(loc)
	return loc, e, err
}

func (s *PlaylistService) owned(ctx context.Context, requester, id int64) (*model.Playlist, error) {
	p, err := s.playlists.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != requester {
		return nil, apperr.Errorf(apperr.ErrForbidden, "playlist %d belongs to another user", id)
	}
	return p, nil
}

func (s *PlaylistService) ownedSong(ctx context.Context, requester, songID int64) (*model.Song, *model.Playlist, error) {
	song, err := s.songs.Get(ctx, songID)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.owned(ctx, requester, song.PlaylistID)
	if err != nil {
		return nil, nil, err
	}
	return song, p, nil
}

// view дополняет песню тегами. Отсутствующий файл не ошибка: песня помечается Missing.
func (s *PlaylistService) view(root string, owner int64, song model.Song) SongView {
	v := SongView{Song: song, Owner: owner}
	loc, err := drive.Within(root, song.Path)
	if err != nil {
		v.Missing = true
		return v
	}
	if _, err := os.Stat(loc.Abs); err != nil {
		v.Missing = true
		v.Tags = media.Tags{Title: strings.TrimSuffix(loc.Name(), filepath.Ext(loc.Name()))}
		return v
	}
	v.Mime = drive.MimeOf(loc.Abs)
	tags, err := s.tags.ReadTags(loc.Abs)
	if err != nil {
		s.logger.Warnw("ListSongs: tag extraction failed", "path", song.Path, "error", err)
		tags = media.Tags{Title: strings.TrimSuffix(loc.Name(), filepath.Ext(loc.Name()))}
	}
	v.Tags = tags
	return v
}

func (s *PlaylistService) emit(ctx context.Context, typ string, p *model.Playlist, extra map[string]any) {
	s.events.Emit(ctx, events.Event{Type: typ, Owner: p.OwnerID, ID: strconv.FormatInt(p.ID, 10), Extra: extra})
}
