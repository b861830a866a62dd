package repo

import (
	"context"
	"errors"
	"testing"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type refFixture struct {
	db     *gorm.DB
	songs  SongRepository
	counts PlayCountRepository
	refs   PathRefRepository
	list   *model.Playlist
}

func newRefFixture(t *testing.T, paths ...string) *refFixture {
	t.Helper()
	db := newTestDB(t)
	f := &refFixture{
		db:     db,
		songs:  NewSongRepository(db),
		counts: NewPlayCountRepository(db),
		refs:   NewPathRefRepository(db),
		list:   &model.Playlist{OwnerID: 1, Name: "main"},
	}
	require.NoError(t, NewPlaylistRepository(db).Create(context.Background(), f.list))
	for _, p := range paths {
		_, err := f.songs.Insert(context.Background(), f.list.ID, 1, p)
		require.NoError(t, err)
	}
	return f
}

func (f *refFixture) paths(t *testing.T) []string {
	t.Helper()
	songs, err := f.songs.ListByPlaylist(context.Background(), f.list.ID, 0, 0)
	require.NoError(t, err)
	out := make([]string, 0, len(songs))
	for _, s := range songs {
		out = append(out, s.Path)
	}
	return out
}

func TestPathRefRepository_MoveFile(t *testing.T) {
	f := newRefFixture(t, "music/a.mp3", "music/c.mp3")
	ctx := context.Background()
	applied := false

	n, err := f.refs.Move(ctx, 1, "music/a.mp3", "music/b.mp3", func() error {
		applied = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"music/b.mp3", "music/c.mp3"}, f.paths(t))

	_, err = f.counts.Get(ctx, 1, "music/b.mp3")
	assert.NoError(t, err)
	_, err = f.counts.Get(ctx, 1, "music/a.mp3")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPathRefRepository_MoveDirectoryRewritesNested(t *testing.T) {
	f := newRefFixture(t, "music/a.mp3", "music/sub/b.mp3", "musical/c.mp3", "music_x/d.mp3")
	ctx := context.Background()

	_, err := f.refs.Move(ctx, 1, "music", "archive/music", nil)
	require.NoError(t, err)

	// соседние каталоги с общим префиксом имени не затрагиваются
	assert.ElementsMatch(t,
		[]string{"archive/music/a.mp3", "archive/music/sub/b.mp3", "musical/c.mp3", "music_x/d.mp3"},
		f.paths(t))
}

func TestPathRefRepository_MoveMergesCollisions(t *testing.T) {
	f := newRefFixture(t, "a.mp3", "b.mp3")
	ctx := context.Background()
	require.NoError(t, f.counts.Increment(ctx, 1, "a.mp3"))
	require.NoError(t, f.counts.Increment(ctx, 1, "b.mp3"))
	require.NoError(t, f.counts.Increment(ctx, 1, "b.mp3"))

	_, err := f.refs.Move(ctx, 1, "a.mp3", "b.mp3", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"b.mp3"}, f.paths(t))
	pc, err := f.counts.Get(ctx, 1, "b.mp3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), pc.Plays)
}

func TestPathRefRepository_ApplyErrorRollsBack(t *testing.T) {
	f := newRefFixture(t, "a.mp3")
	ctx := context.Background()
	boom := errors.New("rename failed")

	_, err := f.refs.Move(ctx, 1, "a.mp3", "z.mp3", func() error { return boom })
	require.Error(t, err)
	assert.Equal(t, []string{"a.mp3"}, f.paths(t))

	_, err = f.refs.Delete(ctx, 1, "a.mp3", false, func() error { return boom })
	require.Error(t, err)
	assert.Equal(t, []string{"a.mp3"}, f.paths(t))
}

func TestPathRefRepository_Delete(t *testing.T) {
	f := newRefFixture(t, "dir/a.mp3", "dir/deep/b.mp3", "dir.mp3", "other.mp3")
	ctx := context.Background()

	// без recursive удаляется только точный путь
	n, err := f.refs.Delete(ctx, 1, "dir", false, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.refs.Delete(ctx, 1, "dir", true, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.ElementsMatch(t, []string{"dir.mp3", "other.mp3"}, f.paths(t))

	pcs, err := f.counts.ListByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, pcs, 2)
}

func TestPathRefRepository_OtherOwnersUntouched(t *testing.T) {
	f := newRefFixture(t, "a.mp3")
	ctx := context.Background()
	other := &model.Playlist{OwnerID: 2, Name: "main"}
	require.NoError(t, NewPlaylistRepository(f.db).Create(ctx, other))
	_, err := f.songs.Insert(ctx, other.ID, 2, "a.mp3")
	require.NoError(t, err)

	_, err = f.refs.Delete(ctx, 1, "a.mp3", false, nil)
	require.NoError(t, err)

	left, err := f.songs.ListByPlaylist(ctx, other.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, left, 1)
	_, err = f.counts.Get(ctx, 2, "a.mp3")
	assert.NoError(t, err)
}
