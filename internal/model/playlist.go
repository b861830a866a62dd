package model

import "time"

// Playlist — именованная коллекция ссылок на песни. Имя уникально в пределах владельца.
type Playlist struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID     int64     `gorm:"not null;uniqueIndex:idx_playlist_owner_name,priority:1" json:"owner"`
	Name        string    `gorm:"not null;uniqueIndex:idx_playlist_owner_name,priority:2" json:"name"`
	Description string    `json:"description"`
	PlayCount   int64     `gorm:"not null;default:0" json:"play_count"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Song — ссылка на файл в диске владельца плейлиста и ключ сортировки.
// Пара (PlaylistID, Path) уникальна; SortKey уникальным не является,
// иначе обмен ключами нарушал бы индекс посередине транзакции.
type Song struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PlaylistID int64  `gorm:"not null;uniqueIndex:idx_song_playlist_path,priority:1;index" json:"playlist_id"`
	Path       string `gorm:"not null;uniqueIndex:idx_song_playlist_path,priority:2" json:"path"`
	SortKey    int64  `gorm:"not null;default:0" json:"sort_key"`
}

// PlayCount — счётчик воспроизведений по паре (владелец, путь), независимый от плейлистов.
type PlayCount struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID int64  `gorm:"not null;uniqueIndex:idx_playcount_owner_path,priority:1" json:"owner"`
	Path    string `gorm:"not null;uniqueIndex:idx_playcount_owner_path,priority:2" json:"path"`
	Plays   int64  `gorm:"not null;default:0" json:"plays"`
}
