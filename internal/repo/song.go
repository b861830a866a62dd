package repo

import (
	"context"
	"database/sql"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SongRepository — хранилище песен плейлистов и их порядка.
type SongRepository interface {
	// Insert добавляет песню с ключом max+1 (0 для пустого плейлиста) и в той же
	// транзакции лениво создаёт счётчик воспроизведений (ownerID, path).
	Insert(ctx context.Context, playlistID, ownerID int64, path string) (*model.Song, error)
	Get(ctx context.Context, id int64) (*model.Song, error)
	// ListByPlaylist возвращает песни по убыванию ключа сортировки. limit <= 0 — без ограничения.
	ListByPlaylist(ctx context.Context, playlistID int64, limit, offset int) ([]model.Song, error)
	Delete(ctx context.Context, playlistID, songID int64) error
	// Swap обменивает ключи сортировки двух песен.
	Swap(ctx context.Context, srcID, destID int64) (src, dest *model.Song, err error)
}

type songRepo struct {
	db *gorm.DB
}

// NewSongRepository создаёт реализацию SongRepository.
func NewSongRepository(db *gorm.DB) SongRepository {
	return &songRepo{db: db}
}

func (r *songRepo) Insert(ctx context.Context, playlistID, ownerID int64, path string) (*model.Song, error) {
	var song *model.Song
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxKey sql.NullInt64
		if err := tx.Model(&model.Song{}).Where("playlist_id = ?", playlistID).
			Select("MAX(sort_key)").Row().Scan(&maxKey); err != nil {
			return err
		}
		s := &model.Song{PlaylistID: playlistID, Path: path}
		if maxKey.Valid {
			s.SortKey = maxKey.Int64 + 1
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(s)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Errorf(apperr.ErrAlreadyExists, "%q is already in playlist %d", path, playlistID)
		}
		if err := createPlayCountIfAbsent(tx, ownerID, path); err != nil {
			return err
		}
		song = s
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "insert song")
	}
	return song, nil
}

func (r *songRepo) Get(ctx context.Context, id int64) (*model.Song, error) {
	var s model.Song
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, apperr.FromDB(err, "song")
	}
	return &s, nil
}

func (r *songRepo) ListByPlaylist(ctx context.Context, playlistID int64, limit, offset int) ([]model.Song, error) {
	q := r.db.WithContext(ctx).Where("playlist_id = ?", playlistID).Order("sort_key DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var songs []model.Song
	err := q.Find(&songs).Error
	return songs, apperr.FromDB(err, "list songs")
}

func (r *songRepo) Delete(ctx context.Context, playlistID, songID int64) error {
	res := r.db.WithContext(ctx).Where("id = ? AND playlist_id = ?", songID, playlistID).Delete(&model.Song{})
	if res.Error != nil {
		return apperr.FromDB(res.Error, "delete song")
	}
	if res.RowsAffected == 0 {
		return apperr.Errorf(apperr.ErrNotFound, "song %d is not in playlist %d", songID, playlistID)
	}
	return nil
}

func (r *songRepo) Swap(ctx context.Context, srcID, destID int64) (*model.Song, *model.Song, error) {
	var src, dest model.Song
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&src, srcID).Error; err != nil {
			return apperr.FromDB(err, "song")
		}
		if err := tx.First(&dest, destID).Error; err != nil {
			return apperr.FromDB(err, "song")
		}
		if srcID == destID {
			return nil
		}
		src.SortKey, dest.SortKey = dest.SortKey, src.SortKey
		if err := tx.Model(&model.Song{}).Where("id = ?", src.ID).Update("sort_key", src.SortKey).Error; err != nil {
			return err
		}
		return tx.Model(&model.Song{}).Where("id = ?", dest.ID).Update("sort_key", dest.SortKey).Error
	})
	if err != nil {
		return nil, nil, apperr.FromDB(err, "swap songs")
	}
	return &src, &dest, nil
}
