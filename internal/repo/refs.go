package repo

import (
	"context"
	"errors"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/model"

	"gorm.io/gorm"
)

// PathRefRepository поддерживает согласованность песен и счётчиков воспроизведений
// с файлами диска при переименовании, перемещении и удалении.
//
// Изменения ссылок и файловая операция apply выполняются в одной транзакции:
// ошибка apply откатывает ссылки. Окно рассогласования остаётся только между
// успешным apply и фиксацией транзакции.
type PathRefRepository interface {
	// Move переписывает ссылки владельца с oldPath (и вложенных путей) на newPath.
	// Возвращает число затронутых записей.
	Move(ctx context.Context, ownerID int64, oldPath, newPath string, apply func() error) (int, error)
	// Delete удаляет ссылки на path; при recursive — и на все вложенные пути.
	Delete(ctx context.Context, ownerID int64, path string, recursive bool, apply func() error) (int, error)
}

type pathRefRepo struct {
	db *gorm.DB
}

// NewPathRefRepository создаёт реализацию PathRefRepository.
func NewPathRefRepository(db *gorm.DB) PathRefRepository {
	return &pathRefRepo{db: db}
}

func refScope(tx *gorm.DB, path string, recursive bool) *gorm.DB {
	if !recursive {
		return tx.Where("path = ?", path)
	}
	return tx.Where(`(path = ? OR path LIKE ? ESCAPE '\')`, path, likePrefix(path))
}

func ownedSongs(tx *gorm.DB, ownerID int64) *gorm.DB {
	owned := tx.Session(&gorm.Session{NewDB: true}).Model(&model.Playlist{}).Select("id").Where("owner_id = ?", ownerID)
	return tx.Where("playlist_id IN (?)", owned)
}

func (r *pathRefRepo) Move(ctx context.Context, ownerID int64, oldPath, newPath string, apply func() error) (int, error) {
	n := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var songs []model.Song
		if err := refScope(ownedSongs(tx.Model(&model.Song{}), ownerID), oldPath, true).Find(&songs).Error; err != nil {
			return err
		}
		for _, s := range songs {
			if !underPath(s.Path, oldPath) {
				continue
			}
			np := rebasePath(s.Path, oldPath, newPath)
			var dup int64
			if err := tx.Model(&model.Song{}).Where("playlist_id = ? AND path = ?", s.PlaylistID, np).Count(&dup).Error; err != nil {
				return err
			}
			var err error
			if dup > 0 {
				// плейлист уже ссылается на новый путь: старая ссылка становится дублем
				err = tx.Delete(&model.Song{}, s.ID).Error
			} else {
				err = tx.Model(&model.Song{}).Where("id = ?", s.ID).Update("path", np).Error
			}
			if err != nil {
				return err
			}
			n++
		}

		var counts []model.PlayCount
		if err := refScope(tx.Where("owner_id = ?", ownerID), oldPath, true).Find(&counts).Error; err != nil {
			return err
		}
		for _, c := range counts {
			if !underPath(c.Path, oldPath) {
				continue
			}
			np := rebasePath(c.Path, oldPath, newPath)
			var existing model.PlayCount
			err := tx.Where("owner_id = ? AND path = ?", ownerID, np).Take(&existing).Error
			switch {
			case err == nil:
				if err := tx.Model(&model.PlayCount{}).Where("id = ?", existing.ID).
					UpdateColumn("plays", gorm.Expr("plays + ?", c.Plays)).Error; err != nil {
					return err
				}
				err = tx.Delete(&model.PlayCount{}, c.ID).Error
			case errors.Is(err, gorm.ErrRecordNotFound):
				err = tx.Model(&model.PlayCount{}).Where("id = ?", c.ID).Update("path", np).Error
			}
			if err != nil {
				return err
			}
			n++
		}

		if apply != nil {
			return apply()
		}
		return nil
	})
	if err != nil {
		return 0, apperr.FromDB(err, "move path references")
	}
	return n, nil
}

func (r *pathRefRepo) Delete(ctx context.Context, ownerID int64, path string, recursive bool, apply func() error) (int, error) {
	n := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var songs []model.Song
		if err := refScope(ownedSongs(tx.Model(&model.Song{}), ownerID), path, recursive).Find(&songs).Error; err != nil {
			return err
		}
		for _, s := range songs {
			if !underPath(s.Path, path) {
				continue
			}
			if err := tx.Delete(&model.Song{}, s.ID).Error; err != nil {
				return err
			}
			n++
		}

		var counts []model.PlayCount
		if err := refScope(tx.Where("owner_id = ?", ownerID), path, recursive).Find(&counts).Error; err != nil {
			return err
		}
		for _, c := range counts {
			if !underPath(c.Path, path) {
				continue
			}
			if err := tx.Delete(&model.PlayCount{}, c.ID).Error; err != nil {
				return err
			}
			n++
		}

		if apply != nil {
			return apply()
		}
		return nil
	})
	if err != nil {
		return 0, apperr.FromDB(err, "delete path references")
	}
	return n, nil
}
