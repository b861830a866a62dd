package repo

import (
	"context"
	"testing"
	"time"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRepository_Lifecycle(t *testing.T) {
	r := NewTaskRepository(newTestDB(t))
	ctx := context.Background()

	task := &model.Task{OwnerID: 1, Plugin: "codeExec", Handler: "exec", Args: `["echo hi",5]`}
	require.NoError(t, r.Create(ctx, task))
	assert.NotZero(t, task.ID)

	require.NoError(t, r.SetLog(ctx, task.ID, "hi\n"))
	got, err := r.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", got.LogText)
	assert.False(t, got.Ended())

	end := time.Now()
	require.NoError(t, r.End(ctx, task.ID, end))
	// повторное завершение не меняет время
	require.NoError(t, r.End(ctx, task.ID, end.Add(time.Hour)))

	got, err = r.Get(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, got.Ended())
	assert.WithinDuration(t, end, *got.EndedAt, time.Second)

	// журнал завершённой задачи не меняется
	assert.ErrorIs(t, r.SetLog(ctx, task.ID, "late"), apperr.ErrNotFound)

	_, err = r.Get(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTaskRepository_ListByOwner(t *testing.T) {
	r := NewTaskRepository(newTestDB(t))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Create(ctx, &model.Task{OwnerID: 1, Plugin: "p", Handler: "h"}))
	}
	require.NoError(t, r.Create(ctx, &model.Task{OwnerID: 2, Plugin: "p", Handler: "h"}))

	list, err := r.ListByOwner(ctx, 1)
	require.NoError(t, err)
	if assert.Len(t, list, 3) {
		assert.Greater(t, list[0].ID, list[2].ID)
	}
}
