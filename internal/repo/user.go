package repo

import (
	"context"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository — хранилище пользователей (identity store).
type UserRepository interface {
	// CreateUser создаёт пользователя; занятое имя даёт apperr.ErrAlreadyExists.
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUserByName(ctx context.Context, name string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	// Rename меняет имя; имя другого пользователя даёт apperr.ErrAlreadyExists.
	Rename(ctx context.Context, id int64, name string) error
	// DeleteCascade удаляет пользователя вместе с плейлистами, песнями,
	// счётчиками, ссылками и задачами в одной транзакции.
	DeleteCascade(ctx context.Context, id int64) error
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepository создаёт реализацию UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	if tx.Error != nil {
		return nil, apperr.FromDB(tx.Error, "create user")
	}
	if tx.RowsAffected == 0 {
		return nil, apperr.Errorf(apperr.ErrAlreadyExists, "user %q", user.Name)
	}
	return user, nil
}

func (r *userRepo) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&u).Error; err != nil {
		return nil, apperr.FromDB(err, "user "+name)
	}
	return &u, nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &u, nil
}

func (r *userRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Select("id", "name", "slogan", "level", "created_at").
		Order("id").
		Find(&users).Error
	return users, apperr.FromDB(err, "list users")
}

func (r *userRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return apperr.FromDB(tx.Error, "update user")
	}
	if tx.RowsAffected == 0 {
		return apperr.Errorf(apperr.ErrNotFound, "user %d", id)
	}
	return nil
}

func (r *userRepo) Rename(ctx context.Context, id int64, name string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&model.User{}).Where("name = ? AND id <> ?", name, id).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return apperr.Errorf(apperr.ErrAlreadyExists, "user %q", name)
		}
		res := tx.Model(&model.User{}).Where("id = ?", id).Update("name", name)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Errorf(apperr.ErrNotFound, "user %d", id)
		}
		return nil
	})
	return apperr.FromDB(err, "rename user")
}

func (r *userRepo) DeleteCascade(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&model.Playlist{}).Select("id").Where("owner_id = ?", id)
		if err := tx.Where("playlist_id IN (?)", owned).Delete(&model.Song{}).Error; err != nil {
			return err
		}
		for _, m := range []any{&model.Playlist{}, &model.PlayCount{}, &model.ShareLink{}, &model.Task{}} {
			if err := tx.Where("owner_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&model.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Errorf(apperr.ErrNotFound, "user %d", id)
		}
		return nil
	})
	return apperr.FromDB(err, "delete user")
}
