// Package events публикует уведомления об изменениях для внешних подписчиков
// (например, realtime-хаба). Публикация best-effort: ошибка не отменяет операцию.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel — канал Redis, в который уходят события.
const Channel = "xms:events"

// Типы событий.
const (
	PathRenamed     = "path.renamed"
	PathMoved       = "path.moved"
	PathDeleted     = "path.deleted"
	PathCreated     = "path.created"
	ShareCreated    = "share.created"
	ShareDeleted    = "share.deleted"
	PlaylistCreated = "playlist.created"
	PlaylistDeleted = "playlist.deleted"
	PlaylistChanged = "playlist.changed"
	UserDeleted     = "user.deleted"
	TaskEnded       = "task.ended"
)

// Event — одно уведомление.
type Event struct {
	Type    string         `json:"type"`
	Owner   int64          `json:"owner"`
	Path    string         `json:"path,omitempty"`
	NewPath string         `json:"new_path,omitempty"`
	ID      string         `json:"id,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
	At      time.Time      `json:"at"`
}

// Publisher доставляет события.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop ничего не публикует.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// RedisPublisher публикует события JSON-сообщениями в канал Channel.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher создаёт публикатор поверх готового клиента.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// Dial разбирает URL вида redis://host:port/db и проверяет соединение.
func Dial(ctx context.Context, url string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return NewRedisPublisher(rdb), nil
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, Channel, data).Err()
}

// Close закрывает клиент Redis.
func (p *RedisPublisher) Close() error { return p.rdb.Close() }

// Emitter оборачивает Publisher и логирует ошибки вместо их возврата.
type Emitter struct {
	pub    Publisher
	logger *zap.SugaredLogger
}

// NewEmitter создаёт Emitter. nil-публикатор заменяется на Nop.
func NewEmitter(pub Publisher, logger *zap.SugaredLogger) *Emitter {
	if pub == nil {
		pub = Nop{}
	}
	return &Emitter{pub: pub, logger: logger}
}

// Emit публикует событие, ошибки только логируются.
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if e == nil {
		return
	}
	if err := e.pub.Publish(ctx, ev); err != nil {
		e.logger.Warnw("event publish failed", "type", ev.Type, "owner", ev.Owner, "error", err)
	}
}
