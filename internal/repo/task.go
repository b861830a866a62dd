package repo

import (
	"context"
	"time"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/model"

	"gorm.io/gorm"
)

// TaskRepository — журнал задач плагинов.
type TaskRepository interface {
	Create(ctx context.Context, t *model.Task) error
	Get(ctx context.Context, id int64) (*model.Task, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Task, error)
	// SetLog заменяет текст журнала незавершённой задачи.
	SetLog(ctx context.Context, id int64, text string) error
	// End выставляет время завершения; повторный вызов ничего не меняет.
	End(ctx context.Context, id int64, at time.Time) error
}

type taskRepo struct {
	db *gorm.DB
}

// NewTaskRepository создаёт реализацию TaskRepository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepo{db: db}
}

func (r *taskRepo) Create(ctx context.Context, t *model.Task) error {
	return apperr.FromDB(r.db.WithContext(ctx).Create(t).Error, "create task")
}

func (r *taskRepo) Get(ctx context.Context, id int64) (*model.Task, error) {
	var t model.Task
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, apperr.FromDB(err, "task")
	}
	return &t, nil
}

func (r *taskRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.Task, error) {
	var list []model.Task
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id DESC").Find(&list).Error
	return list, apperr.FromDB(err, "list tasks")
}

func (r *taskRepo) SetLog(ctx context.Context, id int64, text string) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND ended_at IS NULL", id).
		Update("log_text", text)
	if res.Error != nil {
		return apperr.FromDB(res.Error, "update task log")
	}
	if res.RowsAffected == 0 {
		return apperr.Errorf(apperr.ErrNotFound, "running task %d", id)
	}
	return nil
}

func (r *taskRepo) End(ctx context.Context, id int64, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND ended_at IS NULL", id).
		Update("ended_at", at.UTC()).Error
	return apperr.FromDB(err, "end task")
}
