package repo

import (
	"context"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlayCountRepository — счётчики воспроизведений по (владелец, путь).
// Уникальность пары обеспечивает индекс, а не периодическая чистка дублей.
type PlayCountRepository interface {
	// CreateIfAbsent создаёт запись с нулём. created=true, если запись создана этим вызовом.
	CreateIfAbsent(ctx context.Context, ownerID int64, path string) (created bool, err error)
	Get(ctx context.Context, ownerID int64, path string) (*model.PlayCount, error)
	// Increment увеличивает счётчик существующей записи, новую не создаёт.
	Increment(ctx context.Context, ownerID int64, path string) error
	ListByOwner(ctx context.Context, ownerID int64) ([]model.PlayCount, error)
}

type playCountRepo struct {
	db *gorm.DB
}

// NewPlayCountRepository создаёт реализацию PlayCountRepository.
func NewPlayCountRepository(db *gorm.DB) PlayCountRepository {
	return &playCountRepo{db: db}
}

func createPlayCountIfAbsent(tx *gorm.DB, ownerID int64, path string) error {
	_, err := createPlayCount(tx, ownerID, path)
	return err
}

func createPlayCount(tx *gorm.DB, ownerID int64, path string) (bool, error) {
	pc := &model.PlayCount{OwnerID: ownerID, Path: path}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(pc)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *playCountRepo) CreateIfAbsent(ctx context.Context, ownerID int64, path string) (bool, error) {
	created, err := createPlayCount(r.db.WithContext(ctx), ownerID, path)
	return created, apperr.FromDB(err, "create play count")
}

func (r *playCountRepo) Get(ctx context.Context, ownerID int64, path string) (*model.PlayCount, error) {
	var pc model.PlayCount
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND path = ?", ownerID, path).First(&pc).Error; err != nil {
		return nil, apperr.FromDB(err, "play count "+path)
	}
	return &pc, nil
}

func (r *playCountRepo) Increment(ctx context.Context, ownerID int64, path string) error {
	res := r.db.WithContext(ctx).Model(&model.PlayCount{}).
		Where("owner_id = ? AND path = ?", ownerID, path).
		UpdateColumn("plays", gorm.Expr("plays + ?", 1))
	if res.Error != nil {
		return apperr.FromDB(res.Error, "increase plays")
	}
	if res.RowsAffected == 0 {
		return apperr.Errorf(apperr.ErrNotFound, "no play count record for %q", path)
	}
	return nil
}

func (r *playCountRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.PlayCount, error) {
	var list []model.PlayCount
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("path").Find(&list).Error
	return list, apperr.FromDB(err, "list play counts")
}
