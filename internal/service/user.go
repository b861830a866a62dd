package service

import (
	"context"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/drive"
	"XmediaCenter/internal/events"
	"XmediaCenter/internal/media"
	"XmediaCenter/internal/model"
	"XmediaCenter/internal/repo"
)

const (
	maxNameLen = 15
	// символы, запрещённые в имени пользователя
	forbiddenUserChars = "!@$%^&*(){}[];:\"'~"
	maxImageSize       = 5 << 20
)

// UserService инкапсулирует регистрацию, вход и профиль пользователя,
// а также жизненный цикл его диска.
type UserService struct {
	repo     repo.UserRepository
	resolver *drive.Resolver
	locks    *drive.Locks
	events   *events.Emitter
	logger   *zap.SugaredLogger
}

func NewUserService(r repo.UserRepository, resolver *drive.Resolver, locks *drive.Locks, ev *events.Emitter, logger *zap.SugaredLogger) *UserService {
	if locks == nil {
		locks = drive.NewLocks()
	}
	return &UserService{repo: r, resolver: resolver, locks: locks, events: ev, logger: logger}
}

// ValidateUserName проверяет имя пользователя.
func ValidateUserName(name string) error {
	switch {
	case name == "" || strings.TrimSpace(name) != name:
		return apperr.Errorf(apperr.ErrInvalidArgument, "invalid user name %q", name)
	case len([]rune(name)) > maxNameLen:
		return apperr.Errorf(apperr.ErrInvalidArgument, "user name is longer than %d characters", maxNameLen)
	case strings.ContainsAny(name, forbiddenUserChars):
		return apperr.Errorf(apperr.ErrInvalidArgument, "user name %q contains forbidden characters", name)
	}
	return nil
}

// Register создаёт обычного пользователя.
func (s *UserService) Register(ctx context.Context, name, password, slogan string) (*model.User, error) {
	return s.CreateUser(ctx, name, password, slogan, model.LevelStandard)
}

// CreateUser создаёт пользователя заданного уровня и пустой диск.
// Если диск создать не удалось, запись пользователя удаляется.
func (s *UserService) CreateUser(ctx context.Context, name, password, slogan string, level model.Level) (*model.User, error) {
	if err := ValidateUserName(name); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, apperr.Errorf(apperr.ErrInvalidArgument, "empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Errorf(apperr.ErrInvalidArgument, "password: %v", err)
	}

	user, err := s.repo.CreateUser(ctx, &model.User{
		Name:     name,
		Slogan:   slogan,
		Level:    level,
		Password: string(hash),
	})
	if err != nil {
		return nil, err
	}

	if s.resolver != nil {
		if err := os.MkdirAll(s.resolver.DrivePath(user.ID), 0o755); err != nil {
			s.logger.Errorw("CreateUser: drive creation failed", "user_id", user.ID, "error", err)
			if derr := s.repo.DeleteCascade(ctx, user.ID); derr != nil {
				s.logger.Errorw("CreateUser: rollback failed", "user_id", user.ID, "error", derr)
			}
			return nil, apperr.FromOS(err)
		}
	}
	s.logger.Infow("user created", "user_id", user.ID, "name", name, "level", level.String())
	return user, nil
}

// Login проверяет имя и пароль. Любая неудача — ErrForbidden.
func (s *UserService) Login(ctx context.Context, name, password string) (*model.User, error) {
	user, err := s.repo.GetUserByName(ctx, name)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Errorf(apperr.ErrForbidden, "invalid credentials")
		}
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperr.Errorf(apperr.ErrForbidden, "invalid credentials")
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *UserService) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.repo.List(ctx)
}

// ChangePassword меняет пароль после проверки старого.
func (s *UserService) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return apperr.Errorf(apperr.ErrForbidden, "old password does not match")
	}
	if newPassword == "" {
		return apperr.Errorf(apperr.ErrInvalidArgument, "empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Errorf(apperr.ErrInvalidArgument, "password: %v", err)
	}
	return s.repo.Update(ctx, id, map[string]any{"password": string(hash)})
}

func (s *UserService) UpdateSlogan(ctx context.Context, id int64, slogan string) error {
	return s.repo.Update(ctx, id, map[string]any{"slogan": slogan})
}

// UpdateName переименовывает пользователя.
func (s *UserService) UpdateName(ctx context.Context, id int64, name string) error {
	if err := ValidateUserName(name); err != nil {
		return err
	}
	if err := s.repo.Rename(ctx, id, name); err != nil {
		return err
	}
	s.logger.Infow("user renamed", "user_id", id, "name", name)
	return nil
}

// UpdateAvatar сохраняет аватар; принимаются только изображения.
func (s *UserService) UpdateAvatar(ctx context.Context, id int64, data []byte) error {
	mt, err := imageMime(data)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, id, map[string]any{"avatar": data, "avatar_mime": mt})
}

// UpdateHeadImage сохраняет картинку шапки профиля.
func (s *UserService) UpdateHeadImage(ctx context.Context, id int64, data []byte) error {
	mt, err := imageMime(data)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, id, map[string]any{"head_image": data, "head_image_mime": mt})
}

// Avatar возвращает аватар или изображение по умолчанию.
func (s *UserService) Avatar(ctx context.Context, id int64) (media.Artwork, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return media.Artwork{}, err
	}
	if len(user.Avatar) == 0 {
		return media.DefaultImage(), nil
	}
	return media.Artwork{Mime: user.AvatarMime, Data: user.Avatar}, nil
}

// HeadImage возвращает картинку шапки или изображение по умолчанию.
func (s *UserService) HeadImage(ctx context.Context, id int64) (media.Artwork, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return media.Artwork{}, err
	}
	if len(user.HeadImage) == 0 {
		return media.DefaultImage(), nil
	}
	return media.Artwork{Mime: user.HeadImageMime, Data: user.HeadImage}, nil
}

// Delete удаляет пользователя id по запросу requester. Удалить можно себя;
// администратор может удалить пользователя с уровнем ниже своего.
func (s *UserService) Delete(ctx context.Context, requester, id int64) error {
	if requester != id {
		req, err := s.repo.GetUserByID(ctx, requester)
		if err != nil {
			return err
		}
		target, err := s.repo.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if !req.Level.AtLeast(model.LevelAdmin) || req.Level <= target.Level {
			return apperr.Errorf(apperr.ErrForbidden, "not allowed to delete user %d", id)
		}
	}
	return s.Remove(ctx, id)
}

// Remove безусловно удаляет пользователя: каскадно его плейлисты, песни, счётчики,
// ссылки и задачи, затем рекурсивно диск. Используется админ-утилитой.
func (s *UserService) Remove(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return err
	}
	if s.resolver != nil {
		if err := os.RemoveAll(s.resolver.DrivePath(id)); err != nil {
			s.logger.Errorw("Delete: drive removal failed", "user_id", id, "error", err)
			return apperr.FromOS(err)
		}
	}
	s.events.Emit(ctx, events.Event{Type: events.UserDeleted, Owner: id})
	s.logger.Infow("user deleted", "user_id", id)
	return nil
}

func imageMime(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperr.Errorf(apperr.ErrInvalidArgument, "empty image")
	}
	if len(data) > maxImageSize {
		return "", apperr.Errorf(apperr.ErrInvalidArgument, "image is larger than %d bytes", maxImageSize)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", apperr.Errorf(apperr.ErrInvalidArgument, "unsupported image type %s", mt.String())
	}
	return mt.String(), nil
}
