package repo

import (
	"fmt"
	"strings"

	"XmediaCenter/internal/model"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// InitDB открывает хранилище метаданных и применяет миграции.
// DSN вида postgres://... или "host=... dbname=..." открывается через pgx,
// всё остальное считается путём к файлу SQLite (modernc.org/sqlite, без cgo).
func InitDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "xms.db"
	}
	pg := isPostgresDSN(dsn)

	var dial gorm.Dialector
	if pg {
		dial = postgres.Open(dsn)
	} else {
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: sqliteDSN(dsn)}
	}

	db, err := gorm.Open(dial, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if !pg {
		// SQLite допускает одного писателя; одно соединение убирает SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	if err := db.AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return db, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

// likePrefix экранирует путь для LIKE ... ESCAPE '\' и добавляет "/%".
func likePrefix(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(p) + "/%"
}

// underPath сообщает, совпадает ли p с base или лежит внутри него.
// LIKE в SQLite нечувствителен к регистру, поэтому результат запроса перепроверяется.
func underPath(p, base string) bool {
	return p == base || strings.HasPrefix(p, base+"/")
}

// rebasePath заменяет префикс oldBase на newBase.
func rebasePath(p, oldBase, newBase string) string {
	if p == oldBase {
		return newBase
	}
	return newBase + p[len(oldBase):]
}
