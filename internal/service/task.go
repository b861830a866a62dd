package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/events"
	"XmediaCenter/internal/model"
	"XmediaCenter/internal/plugin"
	"XmediaCenter/internal/repo"
)

// TaskService запускает обработчики плагинов как фоновые задачи.
// Журнал задачи пишет только сама задача; запросы его только читают.
type TaskService struct {
	tasks    repo.TaskRepository
	users    repo.UserRepository
	registry *plugin.Registry
	timeout  time.Duration
	events   *events.Emitter
	logger   *zap.SugaredLogger

	wg sync.WaitGroup
}

func NewTaskService(tasks repo.TaskRepository, users repo.UserRepository, registry *plugin.Registry, timeout time.Duration, ev *events.Emitter, logger *zap.SugaredLogger) *TaskService {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &TaskService{tasks: tasks, users: users, registry: registry, timeout: timeout, events: ev, logger: logger}
}

// Plugins перечисляет зарегистрированные плагины.
func (s *TaskService) Plugins() []plugin.Info {
	return s.registry.List()
}

// Start проверяет плагин и уровень прав владельца, сохраняет задачу и запускает
// обработчик асинхронно. Возвращает id задачи сразу.
func (s *TaskService) Start(ctx context.Context, owner int64, pluginName, handler, rawArgs string) (int64, error) {
	p, h, err := s.registry.Lookup(pluginName, handler)
	if err != nil {
		return 0, err
	}
	user, err := s.users.GetUserByID(ctx, owner)
	if err != nil {
		return 0, err
	}
	if !user.Level.AtLeast(p.MinLevel) {
		return 0, apperr.Errorf(apperr.ErrForbidden, "plugin %q requires level %s", pluginName, p.MinLevel)
	}
	args, err := plugin.ParseArgs(rawArgs)
	if err != nil {
		return 0, err
	}

	task := &model.Task{OwnerID: owner, Plugin: pluginName, Handler: handler, Args: rawArgs}
	if err := s.tasks.Create(ctx, task); err != nil {
		return 0, err
	}
	s.logger.Infow("task started", "task_id", task.ID, "owner", owner, "plugin", pluginName, "handler", handler)

	s.wg.Add(1)
	go s.run(task.ID, owner, h, args)
	return task.ID, nil
}

func (s *TaskService) run(id, owner int64, h plugin.HandlerFunc, args plugin.Args) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	run := &plugin.Run{
		TaskID: id,
		Owner:  owner,
		Log: func(text string) {
			if err := s.tasks.SetLog(context.Background(), id, text); err != nil {
				s.logger.Warnw("task log update failed", "task_id", id, "error", err)
			}
		},
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return h(ctx, run, args)
	}()
	if err != nil {
		s.logger.Warnw("task failed", "task_id", id, "error", err)
		run.SetLog("ERROR " + err.Error())
	}

	if err := s.tasks.End(context.Background(), id, time.Now()); err != nil {
		s.logger.Errorw("task end failed", "task_id", id, "error", err)
	}
	s.events.Emit(context.Background(), events.Event{Type: events.TaskEnded, Owner: owner, ID: strconv.FormatInt(id, 10)})
}

// Wait ждёт завершения запущенных задач.
func (s *TaskService) Wait() {
	s.wg.Wait()
}

// Get возвращает задачу; чужая задача — ErrForbidden.
func (s *TaskService) Get(ctx context.Context, requester, id int64) (*model.Task, error) {
	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != requester {
		return nil, apperr.Errorf(apperr.ErrForbidden, "task %d belongs to another user", id)
	}
	return t, nil
}

func (s *TaskService) ListByOwner(ctx context.Context, owner int64) ([]model.Task, error) {
	return s.tasks.ListByOwner(ctx, owner)
}
