// Package plugin описывает реестр плагинов, выполняемых задачами.
//
// Реестр неизменяем: он собирается один раз при старте из статического набора
// плагинов и передаётся сервису задач явно.
package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/model"
)

// Run — контекст выполнения одной задачи, доступный обработчику.
type Run struct {
	TaskID int64
	Owner  int64
	// Log заменяет текст журнала задачи.
	Log func(text string)
}

// SetLog обновляет журнал, если приёмник задан.
func (r *Run) SetLog(text string) {
	if r != nil && r.Log != nil {
		r.Log(text)
	}
}

// HandlerFunc — обработчик плагина. Возвращённая ошибка попадает в журнал задачи.
type HandlerFunc func(ctx context.Context, run *Run, args Args) error

// Plugin — набор обработчиков с минимальным уровнем прав.
type Plugin struct {
	Name     string
	MinLevel model.Level
	Handlers map[string]HandlerFunc
}

// Info — описание плагина для списков.
type Info struct {
	Name     string   `json:"name"`
	MinLevel string   `json:"min_level"`
	Handlers []string `json:"handlers"`
}

// Registry — неизменяемое отображение (плагин, обработчик) -> HandlerFunc.
type Registry struct {
	plugins map[string]Plugin
}

// NewRegistry проверяет плагины и строит реестр.
func NewRegistry(plugins ...Plugin) (*Registry, error) {
	r := &Registry{plugins: make(map[string]Plugin, len(plugins))}
	for _, p := range plugins {
		if p.Name == "" {
			return nil, fmt.Errorf("plugin without name")
		}
		if _, dup := r.plugins[p.Name]; dup {
			return nil, fmt.Errorf("plugin %q registered twice", p.Name)
		}
		if len(p.Handlers) == 0 {
			return nil, fmt.Errorf("plugin %q has no handlers", p.Name)
		}
		handlers := make(map[string]HandlerFunc, len(p.Handlers))
		for name, h := range p.Handlers {
			if name == "" || h == nil {
				return nil, fmt.Errorf("plugin %q: invalid handler %q", p.Name, name)
			}
			handlers[name] = h
		}
		p.Handlers = handlers
		r.plugins[p.Name] = p
	}
	return r, nil
}

// Lookup находит обработчик. Неизвестный плагин или обработчик — ErrNotFound.
func (r *Registry) Lookup(plugin, handler string) (Plugin, HandlerFunc, error) {
	p, ok := r.plugins[plugin]
	if !ok {
		return Plugin{}, nil, apperr.Errorf(apperr.ErrNotFound, "plugin %q", plugin)
	}
	h, ok := p.Handlers[handler]
	if !ok {
		return Plugin{}, nil, apperr.Errorf(apperr.ErrNotFound, "handler %q of plugin %q", handler, plugin)
	}
	return p, h, nil
}

// List возвращает плагины, отсортированные по имени.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.plugins))
	for _, p := range r.plugins {
		info := Info{Name: p.Name, MinLevel: p.MinLevel.String()}
		for h := range p.Handlers {
			info.Handlers = append(info.Handlers, h)
		}
		sort.Strings(info.Handlers)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Args — позиционные аргументы задачи (JSON-массив).
type Args []json.RawMessage

// ParseArgs разбирает JSON-массив. Пустая строка — пустой список.
func ParseArgs(raw string) (Args, error) {
	if raw == "" {
		return Args{}, nil
	}
	var a Args
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, apperr.Errorf(apperr.ErrInvalidArgument, "args must be a JSON array: %v", err)
	}
	return a, nil
}

// String возвращает i-й аргумент как строку.
func (a Args) String(i int) (string, error) {
	if i >= len(a) {
		return "", apperr.Errorf(apperr.ErrInvalidArgument, "missing argument #%d", i)
	}
	var s string
	if err := json.Unmarshal(a[i], &s); err != nil {
		return "", apperr.Errorf(apperr.ErrInvalidArgument, "argument #%d must be a string", i)
	}
	return s, nil
}

// Int возвращает i-й аргумент как целое; допускается число или строка с числом.
func (a Args) Int(i int) (int, error) {
	if i >= len(a) {
		return 0, apperr.Errorf(apperr.ErrInvalidArgument, "missing argument #%d", i)
	}
	var n int
	if err := json.Unmarshal(a[i], &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(a[i], &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
	}
	return 0, apperr.Errorf(apperr.ErrInvalidArgument, "argument #%d must be an integer", i)
}
