package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"XmediaCenter/internal/config"
)

// ErrUsage возвращается командой при неверных аргументах; диспетчер печатает Usage.
var ErrUsage = errors.New("usage")

// Out — вывод CLI. Тесты подменяют его буфером.
var Out io.Writer = os.Stdout

// Command — подкоманда xmsctl.
type Command interface {
	// Name — имя, под которым команду набирают в терминале.
	Name() string
	// Summary — одна строка для общего списка команд.
	Summary() string
	// Usage — строка вызова, например "useradd <name> <password> [level]".
	Usage() string
	// Run получает аргументы без имени команды.
	Run(ctx context.Context, cfg *config.Config, args []string) error
}

// Set — набор команд с поиском по имени без учёта регистра.
type Set struct {
	byName map[string]Command
}

func NewSet(cmds ...Command) *Set {
	s := &Set{byName: make(map[string]Command, len(cmds))}
	s.Add(cmds...)
	return s
}

// Add регистрирует команды. Повтор имени означает ошибку сборки набора.
func (s *Set) Add(cmds ...Command) {
	for _, c := range cmds {
		name := strings.ToLower(c.Name())
		if _, dup := s.byName[name]; dup {
			panic(fmt.Sprintf("xmsctl: command %q registered twice", name))
		}
		s.byName[name] = c
	}
}

func (s *Set) Lookup(name string) (Command, bool) {
	c, ok := s.byName[strings.ToLower(name)]
	return c, ok
}

// Sorted возвращает команды по алфавиту.
func (s *Set) Sorted() []Command {
	list := make([]Command, 0, len(s.byName))
	for _, c := range s.byName {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// Help печатает общую справку с выровненным списком команд.
func (s *Set) Help(w io.Writer) {
	fmt.Fprint(w, "XmediaCenter admin CLI\n\n")
	fmt.Fprint(w, "Usage:\n  xmsctl [-d <dsn>] [-drive-root <dir>] <command> [args]\n\n")
	fmt.Fprintln(w, "Commands:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range s.Sorted() {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Usage(), c.Summary())
	}
	_ = tw.Flush()
}

// builtin — команды cmd/xmsctl.
var builtin = NewSet(
	userAddCmd{},
	userDelCmd{},
	userRenameCmd{},
	usersCmd{},
	pluginsCmd{},
)
