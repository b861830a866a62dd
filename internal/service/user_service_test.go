package service

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/media"
	"XmediaCenter/internal/model"
	"XmediaCenter/internal/repo"
)

// мок для repo.UserRepository
type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	args := m.Called(ctx, name)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]model.User); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	return m.Called(ctx, id, updates).Error(0)
}

func (m *mockUserRepo) Rename(ctx context.Context, id int64, name string) error {
	return m.Called(ctx, id, name).Error(0)
}

func (m *mockUserRepo) DeleteCascade(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

var _ repo.UserRepository = (*mockUserRepo)(nil)

func newMockUserService(m *mockUserRepo) *UserService {
	return NewUserService(m, nil, nil, nil, zap.NewNop().Sugar())
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	m := new(mockUserRepo)
	svc := newMockUserService(m)

	t.Run("ok when name free", func(t *testing.T) {
		m.ExpectedCalls = nil
		created := &model.User{ID: 10, Name: "john"}
		m.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Name == "john" && u.Password != "" && u.Password != "p@ss" && u.Level == model.LevelStandard
		})).Return(created, nil).Once()

		user, err := svc.Register(ctx, "john", "p@ss", "")
		assert.NoError(t, err)
		assert.Equal(t, int64(10), user.ID)
		m.AssertExpectations(t)
	})

	t.Run("conflict when name taken", func(t *testing.T) {
		m.ExpectedCalls = nil
		m.On("CreateUser", mock.Anything, mock.Anything).Return(nil, apperr.Errorf(apperr.ErrAlreadyExists, "user")).Once()

		user, err := svc.Register(ctx, "john", "p@ss", "")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
		m.AssertExpectations(t)
	})

	t.Run("invalid names never reach the store", func(t *testing.T) {
		m := new(mockUserRepo)
		svc := newMockUserService(m)
		for _, name := range []string{"", "a@b", "sixteen_chars_xx", "x;y", " pad"} {
			_, err := svc.Register(ctx, name, "p", "")
			assert.ErrorIs(t, err, apperr.ErrInvalidArgument, name)
		}
		_, err := svc.Register(ctx, "john", "", "")
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
		m.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()
	m := new(mockUserRepo)
	svc := newMockUserService(m)

	// готовим хеш для пароля "secret"
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)

	t.Run("ok with valid credentials", func(t *testing.T) {
		m.ExpectedCalls = nil
		m.On("GetUserByName", mock.Anything, "alice").Return(&model.User{ID: 2, Name: "alice", Password: string(hash)}, nil).Once()

		user, err := svc.Login(ctx, "alice", "secret")
		assert.NoError(t, err)
		assert.Equal(t, int64(2), user.ID)
		m.AssertExpectations(t)
	})

	t.Run("invalid password", func(t *testing.T) {
		m.ExpectedCalls = nil
		m.On("GetUserByName", mock.Anything, "alice").Return(&model.User{ID: 2, Name: "alice", Password: string(hash)}, nil).Once()

		user, err := svc.Login(ctx, "alice", "wrong")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		m.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		m.ExpectedCalls = nil
		m.On("GetUserByName", mock.Anything, "ghost").Return(nil, apperr.Errorf(apperr.ErrNotFound, "user")).Once()

		_, err := svc.Login(ctx, "ghost", "secret")
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		m.AssertExpectations(t)
	})
}

func TestUserService_RegisterCreatesDrive(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "alice")

	info, err := os.Stat(env.resolver.DrivePath(u.ID))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = env.users.Register(context.Background(), "alice", "x", "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestUserService_Profile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")

	require.NoError(t, env.users.UpdateSlogan(ctx, u.ID, "hello"))
	got, err := env.users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Slogan)

	assert.ErrorIs(t, env.users.ChangePassword(ctx, u.ID, "wrong", "new"), apperr.ErrForbidden)
	require.NoError(t, env.users.ChangePassword(ctx, u.ID, "secret", "new"))
	_, err = env.users.Login(ctx, "alice", "new")
	assert.NoError(t, err)

	// без аватара — изображение по умолчанию
	art, err := env.users.Avatar(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, media.DefaultImage().Data, art.Data)

	assert.ErrorIs(t, env.users.UpdateAvatar(ctx, u.ID, []byte("plain text")), apperr.ErrInvalidArgument)
	png := media.DefaultImage().Data
	require.NoError(t, env.users.UpdateHeadImage(ctx, u.ID, png))
	head, err := env.users.HeadImage(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", head.Mime)

	_, err = env.users.Avatar(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUserService_DeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	env.file(t, alice.ID, "music/a.mp3", "x")

	p, err := env.playlists.CreatePlaylist(ctx, alice.ID, "fav", "")
	require.NoError(t, err)
	_, err = env.playlists.InsertSong(ctx, alice.ID, p.ID, "music/a.mp3")
	require.NoError(t, err)
	link, err := env.shares.Create(ctx, alice.ID, "music")
	require.NoError(t, err)

	require.NoError(t, env.users.Delete(ctx, alice.ID, alice.ID))

	_, err = os.Stat(env.resolver.DrivePath(alice.ID))
	assert.True(t, os.IsNotExist(err), "drive must be removed")
	_, err = env.shares.Resolve(ctx, link.Token)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	var n int64
	require.NoError(t, env.db.Model(&model.Song{}).Where("playlist_id = ?", p.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUserService_DeletePermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	admin, err := env.users.CreateUser(ctx, "root", "pw", "", model.LevelAdmin)
	require.NoError(t, err)

	assert.ErrorIs(t, env.users.Delete(ctx, bob.ID, alice.ID), apperr.ErrForbidden)
	assert.ErrorIs(t, env.users.Delete(ctx, alice.ID, admin.ID), apperr.ErrForbidden)
	require.NoError(t, env.users.Delete(ctx, admin.ID, bob.ID))

	ok, err := env.users.Exists(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserService_UpdateName(t *testing.T) {
	ctx := context.Background()
	m := new(mockUserRepo)
	svc := newMockUserService(m)

	m.On("Rename", mock.Anything, int64(1), "jane").Return(nil).Once()
	m.On("Rename", mock.Anything, int64(1), "bob").Return(apperr.Errorf(apperr.ErrAlreadyExists, "user")).Once()

	assert.NoError(t, svc.UpdateName(ctx, 1, "jane"))
	assert.ErrorIs(t, svc.UpdateName(ctx, 1, "bob"), apperr.ErrAlreadyExists)
	assert.ErrorIs(t, svc.UpdateName(ctx, 1, "a@b"), apperr.ErrInvalidArgument)
	assert.ErrorIs(t, svc.UpdateName(ctx, 1, ""), apperr.ErrInvalidArgument)
	m.AssertExpectations(t)
	m.AssertNumberOfCalls(t, "Rename", 2)
}
