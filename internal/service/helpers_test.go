package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"XmediaCenter/internal/drive"
	"XmediaCenter/internal/events"
	"XmediaCenter/internal/media"
	"XmediaCenter/internal/model"
	"XmediaCenter/internal/plugin"
	"XmediaCenter/internal/repo"
)

// testEnv — сервисы поверх in-memory SQLite и временного корня дисков.
type testEnv struct {
	db        *gorm.DB
	root      string
	resolver  *drive.Resolver
	users     *UserService
	drive     *DriveService
	shares    *ShareService
	playlists *PlaylistService
	tasks     *TaskService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repo.InitDB("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := zap.NewNop().Sugar()
	root := t.TempDir()
	userRepo := repo.NewUserRepository(db)
	resolver, err := drive.NewResolver(root, userRepo)
	require.NoError(t, err)
	locks := drive.NewLocks()
	ev := events.NewEmitter(events.Nop{}, logger)

	registry, err := plugin.NewRegistry(plugin.CodeExec())
	require.NoError(t, err)

	env := &testEnv{
		db:       db,
		root:     root,
		resolver: resolver,
		users:    NewUserService(userRepo, resolver, locks, ev, logger),
		drive:    NewDriveService(resolver, repo.NewPathRefRepository(db), locks, ev, nil, logger),
		shares:   NewShareService(repo.NewShareLinkRepository(db), resolver, ev, nil, logger),
		playlists: NewPlaylistService(PlaylistDeps{
			Playlists: repo.NewPlaylistRepository(db),
			Songs:     repo.NewSongRepository(db),
			Counts:    repo.NewPlayCountRepository(db),
			Resolver:  resolver,
			Tags:      media.TagExtractor{},
			Events:    ev,
			Logger:    logger,
		}),
	}
	env.tasks = NewTaskService(repo.NewTaskRepository(db), userRepo, registry, 0, ev, logger)
	t.Cleanup(env.tasks.Wait)
	return env
}

func (e *testEnv) user(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), name, "secret", "")
	require.NoError(t, err)
	return u
}

// file создаёт файл rel в диске пользователя.
func (e *testEnv) file(t *testing.T, userID int64, rel, content string) string {
	t.Helper()
	abs := filepath.Join(e.resolver.DrivePath(userID), filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	return abs
}

func (e *testEnv) songPaths(t *testing.T, owner, playlistID int64) []string {
	t.Helper()
	songs, err := e.playlists.ListSongs(context.Background(), owner, playlistID, 0, 0)
	require.NoError(t, err)
	out := make([]string, 0, len(songs))
	for _, s := range songs {
		out = append(out, s.Path)
	}
	return out
}
