package plugin

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/model"
)

func noop(context.Context, *Run, Args) error { return nil }

func TestNewRegistry_Validation(t *testing.T) {
	_, err := NewRegistry(Plugin{Name: "a", Handlers: map[string]HandlerFunc{"h": noop}}, Plugin{Name: "a", Handlers: map[string]HandlerFunc{"h": noop}})
	assert.Error(t, err, "duplicate names")

	_, err = NewRegistry(Plugin{Name: "a"})
	assert.Error(t, err, "no handlers")

	_, err = NewRegistry(Plugin{Name: "a", Handlers: map[string]HandlerFunc{"h": nil}})
	assert.Error(t, err, "nil handler")

	_, err = NewRegistry(Plugin{Handlers: map[string]HandlerFunc{"h": noop}})
	assert.Error(t, err, "empty name")
}

func TestRegistry_LookupAndList(t *testing.T) {
	handlers := map[string]HandlerFunc{"b": noop, "a": noop}
	r, err := NewRegistry(CodeExec(), Plugin{Name: "media", MinLevel: model.LevelAdmin, Handlers: handlers})
	require.NoError(t, err)

	// реестр не зависит от исходной карты
	delete(handlers, "a")
	_, _, err = r.Lookup("media", "a")
	assert.NoError(t, err)

	p, h, err := r.Lookup(CodeExecName, "exec")
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, model.LevelSuperAdmin, p.MinLevel)

	_, _, err = r.Lookup("missing", "exec")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, _, err = r.Lookup(CodeExecName, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	list := r.List()
	if assert.Len(t, list, 2) {
		assert.Equal(t, CodeExecName, list[0].Name)
		assert.Equal(t, "superadmin", list[0].MinLevel)
		assert.Equal(t, []string{"a", "b"}, list[1].Handlers)
	}
}

func TestArgs(t *testing.T) {
	a, err := ParseArgs(`["echo hi", 5, "7", true]`)
	require.NoError(t, err)

	s, err := a.String(0)
	require.NoError(t, err)
	assert.Equal(t, "echo hi", s)

	n, err := a.Int(1)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = a.Int(2)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = a.Int(3)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	_, err = a.String(1)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	_, err = a.String(10)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = ParseArgs(`{"x":1}`)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	empty, err := ParseArgs("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

type logSink struct {
	mu   sync.Mutex
	last string
}

func (l *logSink) set(s string) {
	l.mu.Lock()
	l.last = s
	l.mu.Unlock()
}

func (l *logSink) get() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func runExec(t *testing.T, args string) string {
	t.Helper()
	a, err := ParseArgs(args)
	require.NoError(t, err)
	sink := &logSink{}
	require.NoError(t, execHandler(context.Background(), &Run{TaskID: 1, Owner: 1, Log: sink.set}, a))
	return sink.get()
}

func TestExec_StatusCode(t *testing.T) {
	out := runExec(t, `["echo hello; echo oops 1>&2; exit 3", 10]`)
	assert.Contains(t, out, "hello\n")
	assert.Contains(t, out, "oops\n")
	assert.True(t, strings.HasSuffix(out, "OK with status code 3"), out)
}

func TestExec_KeepsLastLines(t *testing.T) {
	out := runExec(t, `["i=0; while [ $i -lt 150 ]; do echo line$i; i=$((i+1)); done", 10]`)
	assert.NotContains(t, out, "line49\n")
	assert.Contains(t, out, "line50\n")
	assert.Contains(t, out, "line149\n")
	assert.Equal(t, 101, len(strings.Split(out, "\n")))
}

func TestExec_Timeout(t *testing.T) {
	out := runExec(t, `["echo start; exec sleep 5", 1]`)
	assert.Contains(t, out, "start\n")
	assert.True(t, strings.HasSuffix(out, "TERMINATED due to timeout"), out)
}

func TestExec_BadArgs(t *testing.T) {
	a, _ := ParseArgs(`[1]`)
	err := execHandler(context.Background(), &Run{}, a)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}
