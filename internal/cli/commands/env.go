package commands

import (
	"context"
	"os"

	"go.uber.org/zap"

	"XmediaCenter/internal/config"
	"XmediaCenter/internal/drive"
	"XmediaCenter/internal/events"
	"XmediaCenter/internal/plugin"
	"XmediaCenter/internal/repo"
	"XmediaCenter/internal/service"
)

// adminEnv — сервисы поверх той же базы и корня дисков, что и у сервера.
type adminEnv struct {
	Users    *service.UserService
	Registry *plugin.Registry
}

// openEnv открывает базу и корень дисков из cfg. done закрывает соединения.
func openEnv(ctx context.Context, cfg *config.Config) (*adminEnv, func(), error) {
	db, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := os.MkdirAll(cfg.DriveRoot, 0o755); err != nil {
		closeDB()
		return nil, nil, err
	}

	logger := zap.NewNop().Sugar()
	userRepo := repo.NewUserRepository(db)
	resolver, err := drive.NewResolver(cfg.DriveRoot, userRepo)
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	ev := events.NewEmitter(nil, logger)
	var pubClose func()
	if cfg.RedisURL != "" {
		if rp, err := events.Dial(ctx, cfg.RedisURL); err == nil {
			ev = events.NewEmitter(rp, logger)
			pubClose = func() { _ = rp.Close() }
		}
	}

	registry, err := plugin.NewRegistry(plugin.CodeExec())
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	env := &adminEnv{
		Users:    service.NewUserService(userRepo, resolver, drive.NewLocks(), ev, logger),
		Registry: registry,
	}
	return env, func() {
		if pubClose != nil {
			pubClose()
		}
		closeDB()
	}, nil
}
