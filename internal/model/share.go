package model

import "time"

// ShareLink — токен, дающий неаутентифицированный доступ на чтение к пути владельца.
// На пару (OwnerID, Path) приходится не больше одной ссылки.
type ShareLink struct {
	Token     string    `gorm:"primaryKey;size:64" json:"id"`
	OwnerID   int64     `gorm:"not null;uniqueIndex:idx_share_owner_path,priority:1" json:"owner"`
	Path      string    `gorm:"not null;uniqueIndex:idx_share_owner_path,priority:2" json:"path"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
