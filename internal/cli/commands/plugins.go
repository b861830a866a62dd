package commands

import (
	"context"
	"fmt"
	"strings"

	"XmediaCenter/internal/config"
)

type pluginsCmd struct{}

func (pluginsCmd) Name() string    { return "plugins" }
func (pluginsCmd) Summary() string { return "Показать зарегистрированные плагины" }
func (pluginsCmd) Usage() string   { return "plugins" }

func (pluginsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	env, done, err := openEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer done()

	for _, p := range env.Registry.List() {
		fmt.Fprintf(Out, "- %s  min_level=%s  handlers=%s\n", p.Name, p.MinLevel, strings.Join(p.Handlers, ","))
	}
	return nil
}
