package model

import "time"

// Task — запуск обработчика плагина от имени владельца.
// LogText пишет только сама задача; EndedAt выставляется один раз по завершении.
type Task struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID   int64      `gorm:"not null;index" json:"owner"`
	Plugin    string     `gorm:"not null" json:"plugin"`
	Handler   string     `gorm:"not null" json:"handler"`
	Args      string     `json:"args"` // JSON-массив строк
	LogText   string     `json:"log_text"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Ended сообщает, завершилась ли задача.
func (t *Task) Ended() bool { return t.EndedAt != nil }

// All возвращает все модели для AutoMigrate.
func All() []any {
	return []any{&User{}, &Playlist{}, &Song{}, &PlayCount{}, &ShareLink{}, &Task{}}
}
