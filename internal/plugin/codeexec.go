package plugin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"XmediaCenter/internal/model"
)

const (
	// CodeExecName — имя встроенного плагина выполнения команд.
	CodeExecName = "codeExec"

	tailLines     = 100
	flushInterval = 500 * time.Millisecond
)

// CodeExec выполняет shell-команду: args = [command, timeoutSeconds].
// Доступен только superadmin.
func CodeExec() Plugin {
	return Plugin{
		Name:     CodeExecName,
		MinLevel: model.LevelSuperAdmin,
		Handlers: map[string]HandlerFunc{"exec": execHandler},
	}
}

func execHandler(ctx context.Context, run *Run, args Args) error {
	command, err := args.String(0)
	if err != nil {
		return err
	}
	timeout, err := args.Int(1)
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.WaitDelay = time.Second
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	tail := newTail(tailLines)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sc := bufio.NewScanner(pr)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		last := time.Now()
		for sc.Scan() {
			tail.add(sc.Text())
			if time.Since(last) >= flushInterval {
				run.SetLog(tail.text())
				last = time.Now()
			}
		}
		_, _ = io.Copy(io.Discard, pr)
	}()

	if err := cmd.Start(); err != nil {
		pw.Close()
		<-done
		return err
	}
	waitErr := cmd.Wait()
	pw.Close()
	<-done

	out := tail.text()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		run.SetLog(out + "TERMINATED due to timeout")
		return nil
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return waitErr
	}
	run.SetLog(out + fmt.Sprintf("OK with status code %d", cmd.ProcessState.ExitCode()))
	return nil
}

// tail хранит последние n строк вывода.
type tail struct {
	mu    sync.Mutex
	n     int
	lines []string
}

func newTail(n int) *tail { return &tail{n: n} }

func (t *tail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

func (t *tail) text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == 0 {
		return ""
	}
	return strings.Join(t.lines, "\n") + "\n"
}
