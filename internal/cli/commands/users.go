package commands

import (
	"context"
	"fmt"
	"strconv"

	"XmediaCenter/internal/config"
	"XmediaCenter/internal/model"
)

type userAddCmd struct{}

func (userAddCmd) Name() string    { return "useradd" }
func (userAddCmd) Summary() string { return "Создать пользователя и его диск" }
func (userAddCmd) Usage() string   { return "useradd <name> <password> [level]" }

func (userAddCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return ErrUsage
	}
	level := model.LevelStandard
	if len(args) == 3 {
		l, err := model.ParseLevel(args[2])
		if err != nil {
			return err
		}
		level = l
	}
	env, done, err := openEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer done()

	u, err := env.Users.CreateUser(ctx, args[0], args[1], "", level)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Создан пользователь %s (id=%d, level=%s)\n", u.Name, u.ID, u.Level)
	return nil
}

type userDelCmd struct{}

func (userDelCmd) Name() string    { return "userdel" }
func (userDelCmd) Summary() string { return "Удалить пользователя, его диск и все записи" }
func (userDelCmd) Usage() string   { return "userdel <id>" }

func (userDelCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return ErrUsage
	}
	env, done, err := openEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer done()

	if err := env.Users.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Пользователь %d удалён\n", id)
	return nil
}

type userRenameCmd struct{}

func (userRenameCmd) Name() string    { return "userrename" }
func (userRenameCmd) Summary() string { return "Сменить имя пользователя" }
func (userRenameCmd) Usage() string   { return "userrename <id> <name>" }

func (userRenameCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return ErrUsage
	}
	env, done, err := openEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer done()

	if err := env.Users.UpdateName(ctx, id, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Пользователь %d теперь %s\n", id, args[1])
	return nil
}

type usersCmd struct{}

func (usersCmd) Name() string    { return "users" }
func (usersCmd) Summary() string { return "Показать всех пользователей" }
func (usersCmd) Usage() string   { return "users" }

func (usersCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	env, done, err := openEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer done()

	list, err := env.Users.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(Out, "Нет пользователей")
		return nil
	}
	for _, u := range list {
		fmt.Fprintf(Out, "- %d  name=%s  level=%s\n", u.ID, u.Name, u.Level)
	}
	fmt.Fprintf(Out, "Всего: %d\n", len(list))
	return nil
}
