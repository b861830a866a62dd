package model

import (
	"fmt"
	"strings"
	"time"
)

// Level — уровень прав пользователя. Значения упорядочены: больше — сильнее.
type Level int

const (
	LevelStandard Level = iota
	LevelAdmin
	LevelSuperAdmin
)

func (l Level) String() string {
	switch l {
	case LevelStandard:
		return "standard"
	case LevelAdmin:
		return "admin"
	case LevelSuperAdmin:
		return "superadmin"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// MarshalText отдаёт уровень именем, а не числом.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText принимает имя уровня.
func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// AtLeast сообщает, удовлетворяет ли уровень минимально требуемому.
func (l Level) AtLeast(min Level) bool { return l >= min }

// ParseLevel разбирает имя уровня (регистр не важен).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "user":
		return LevelStandard, nil
	case "admin":
		return LevelAdmin, nil
	case "superadmin":
		return LevelSuperAdmin, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// User — серверная модель пользователя. Диск пользователя не хранится,
// а вычисляется как {driveRoot}/{ID}.
type User struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"size:15;not null;uniqueIndex" json:"name"`
	Slogan   string `json:"slogan"`
	Level    Level  `gorm:"not null;default:0" json:"level"`
	Password string `gorm:"not null" json:"-"` // bcrypt-хеш

	Avatar        []byte `json:"-"`
	AvatarMime    string `json:"-"`
	HeadImage     []byte `json:"-"`
	HeadImageMime string `json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
