package repo

import (
	"context"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlaylistRepository — хранилище плейлистов.
type PlaylistRepository interface {
	// Create создаёт плейлист; имя, занятое у того же владельца, даёт apperr.ErrAlreadyExists.
	Create(ctx context.Context, p *model.Playlist) error
	Get(ctx context.Context, id int64) (*model.Playlist, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Playlist, error)
	// Delete удаляет плейлист и все его песни. Счётчики воспроизведений не трогает.
	Delete(ctx context.Context, id int64) error
	IncrementPlays(ctx context.Context, id int64) error
}

type playlistRepo struct {
	db *gorm.DB
}

// NewPlaylistRepository создаёт реализацию PlaylistRepository.
func NewPlaylistRepository(db *gorm.DB) PlaylistRepository {
	return &playlistRepo{db: db}
}

func (r *playlistRepo) Create(ctx context.Context, p *model.Playlist) error {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	if tx.Error != nil {
		return apperr.FromDB(tx.Error, "create playlist")
	}
	if tx.RowsAffected == 0 {
		return apperr.Errorf(apperr.ErrAlreadyExists, "playlist %q", p.Name)
	}
	return nil
}

func (r *playlistRepo) Get(ctx context.Context, id int64) (*model.Playlist, error) {
	var p model.Playlist
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, apperr.FromDB(err, "playlist")
	}
	return &p, nil
}

func (r *playlistRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.Playlist, error) {
	var list []model.Playlist
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&list).Error
	return list, apperr.FromDB(err, "list playlists")
}

func (r *playlistRepo) Delete(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&model.Song{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Playlist{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Errorf(apperr.ErrNotFound, "playlist %d", id)
		}
		return nil
	})
	return apperr.FromDB(err, "delete playlist")
}

func (r *playlistRepo) IncrementPlays(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&model.Playlist{}).Where("id = ?", id).
		UpdateColumn("play_count", gorm.Expr("play_count + ?", 1))
	if res.Error != nil {
		return apperr.FromDB(res.Error, "increase playlist plays")
	}
	if res.RowsAffected == 0 {
		return apperr.Errorf(apperr.ErrNotFound, "playlist %d", id)
	}
	return nil
}
