package commands

import (
	"context"
	"errors"
	"fmt"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/config"
)

// Коды выхода xmsctl.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// Dispatch выполняет команду встроенного набора и возвращает код выхода процесса.
func Dispatch(ctx context.Context, cfg *config.Config, args []string) int {
	return builtin.Dispatch(ctx, cfg, args)
}

// Dispatch разбирает args = [command, args...] и запускает команду.
// Ошибки с видом invalid_argument печатаются вместе со строкой Usage.
func (s *Set) Dispatch(ctx context.Context, cfg *config.Config, args []string) int {
	if len(args) == 0 {
		s.Help(Out)
		return exitUsage
	}
	switch args[0] {
	case "help", "-h", "--help":
		return s.help(args[1:])
	}

	c, ok := s.Lookup(args[0])
	if !ok {
		s.unknown(args[0])
		return exitUsage
	}

	err := c.Run(ctx, cfg, args[1:])
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrUsage):
		fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
		return exitUsage
	case apperr.KindOf(err) == apperr.KindInvalidArgument:
		fmt.Fprintf(Out, "xmsctl %s: %v\nUsage: %s\n", c.Name(), err, c.Usage())
		return exitUsage
	default:
		fmt.Fprintf(Out, "xmsctl %s: %v\n", c.Name(), err)
		return exitFailed
	}
}

func (s *Set) help(args []string) int {
	if len(args) == 0 {
		s.Help(Out)
		return exitOK
	}
	c, ok := s.Lookup(args[0])
	if !ok {
		s.unknown(args[0])
		return exitUsage
	}
	fmt.Fprintf(Out, "Usage: %s\n  %s\n", c.Usage(), c.Summary())
	return exitOK
}

func (s *Set) unknown(name string) {
	fmt.Fprintf(Out, "Unknown command: %s\n\n", name)
	s.Help(Out)
}
