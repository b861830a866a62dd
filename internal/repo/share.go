package repo

import (
	"context"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShareLinkRepository — хранилище ссылок общего доступа.
type ShareLinkRepository interface {
	// CreateIfAbsent сохраняет ссылку, если для (владелец, путь) ссылки ещё нет,
	// и возвращает действующую ссылку: новую или уже существующую.
	CreateIfAbsent(ctx context.Context, link *model.ShareLink) (stored *model.ShareLink, created bool, err error)
	Get(ctx context.Context, token string) (*model.ShareLink, error)
	GetByOwnerPath(ctx context.Context, ownerID int64, path string) (*model.ShareLink, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.ShareLink, error)
	Delete(ctx context.Context, token string) error
}

type shareLinkRepo struct {
	db *gorm.DB
}

// NewShareLinkRepository создаёт реализацию ShareLinkRepository.
func NewShareLinkRepository(db *gorm.DB) ShareLinkRepository {
	return &shareLinkRepo{db: db}
}

func (r *shareLinkRepo) CreateIfAbsent(ctx context.Context, link *model.ShareLink) (*model.ShareLink, bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(link)
	if res.Error != nil {
		return nil, false, apperr.FromDB(res.Error, "create share link")
	}
	if res.RowsAffected > 0 {
		return link, true, nil
	}
	// конфликт: либо пара (владелец, путь) уже зарегистрирована, либо совпал токен
	existing, err := r.GetByOwnerPath(ctx, link.OwnerID, link.Path)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, false, apperr.Errorf(apperr.ErrAlreadyExists, "share token collision")
		}
		return nil, false, err
	}
	return existing, false, nil
}

func (r *shareLinkRepo) Get(ctx context.Context, token string) (*model.ShareLink, error) {
	var l model.ShareLink
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&l).Error; err != nil {
		return nil, apperr.FromDB(err, "share link")
	}
	return &l, nil
}

func (r *shareLinkRepo) GetByOwnerPath(ctx context.Context, ownerID int64, path string) (*model.ShareLink, error) {
	var l model.ShareLink
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND path = ?", ownerID, path).First(&l).Error; err != nil {
		return nil, apperr.FromDB(err, "share link")
	}
	return &l, nil
}

func (r *shareLinkRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.ShareLink, error) {
	var list []model.ShareLink
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at").Find(&list).Error
	return list, apperr.FromDB(err, "list share links")
}

func (r *shareLinkRepo) Delete(ctx context.Context, token string) error {
	res := r.db.WithContext(ctx).Where("token = ?", token).Delete(&model.ShareLink{})
	if res.Error != nil {
		return apperr.FromDB(res.Error, "delete share link")
	}
	if res.RowsAffected == 0 {
		return apperr.Errorf(apperr.ErrNotFound, "share link")
	}
	return nil
}
