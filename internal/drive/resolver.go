// Package drive отображает пару (пользователь, относительный путь) на абсолютный
// путь внутри диска пользователя {root}/{userID} и гарантирует, что результат
// не выходит за пределы диска.
//
// Все операции, принимающие путь от клиента, обязаны проходить через Resolver:
// нормализация и проверка вложенности реализованы только здесь.
package drive

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"XmediaCenter/internal/apperr"
)

// Users — минимальный контракт хранилища пользователей, нужный резолверу.
type Users interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Location — проверенный путь внутри диска.
type Location struct {
	Root string // корень диска пользователя
	Abs  string // абсолютный путь
	Rel  string // канонический путь относительно Root через "/", "" — сам корень
}

// IsRoot сообщает, указывает ли путь на корень диска.
func (l Location) IsRoot() bool { return l.Rel == "" }

// Name возвращает последний сегмент пути.
func (l Location) Name() string { return filepath.Base(l.Abs) }

// Resolver вычисляет диски пользователей относительно общего корня.
type Resolver struct {
	root  string
	users Users
}

// NewResolver создаёт резолвер. root приводится к абсолютному очищенному виду.
func NewResolver(root string, users Users) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, apperr.FromOS(err)
	}
	return &Resolver{root: filepath.Clean(abs), users: users}, nil
}

// Root возвращает общий корень дисков.
func (r *Resolver) Root() string { return r.root }

// DrivePath вычисляет путь диска без проверки существования пользователя.
// Используется при создании и удалении пользователя.
func (r *Resolver) DrivePath(userID int64) string {
	return filepath.Join(r.root, strconv.FormatInt(userID, 10))
}

// DriveRoot возвращает корень диска существующего пользователя.
func (r *Resolver) DriveRoot(ctx context.Context, userID int64) (string, error) {
	ok, err := r.users.Exists(ctx, userID)
	if err != nil {
		return "", apperr.FromDB(err, "user lookup")
	}
	if !ok {
		return "", apperr.Errorf(apperr.ErrNotFound, "user %d", userID)
	}
	return r.DrivePath(userID), nil
}

// Resolve проверяет и разрешает путь rel в диске пользователя.
func (r *Resolver) Resolve(ctx context.Context, userID int64, rel string) (Location, error) {
	root, err := r.DriveRoot(ctx, userID)
	if err != nil {
		return Location{}, err
	}
	return Within(root, rel)
}

// ResolveWithin разрешает rel внутри поддерева base (оба относительно диска).
// Путь, выходящий из base, даёт ErrForbidden даже если он остаётся внутри диска.
func (r *Resolver) ResolveWithin(ctx context.Context, userID int64, base, rel string) (Location, error) {
	root, err := r.DriveRoot(ctx, userID)
	if err != nil {
		return Location{}, err
	}
	b, err := Within(root, base)
	if err != nil {
		return Location{}, err
	}
	inner, err := Within(b.Abs, rel)
	if err != nil {
		return Location{}, err
	}
	return locate(root, inner.Abs), nil
}

// Within соединяет rel с root, нормализует "." и ".." и проверяет, что результат
// является root или его потомком. Ведущий "/" трактуется как корень диска.
func Within(root, rel string) (Location, error) {
	if strings.ContainsRune(rel, 0) {
		return Location{}, apperr.Errorf(apperr.ErrInvalidArgument, "path contains NUL byte")
	}
	root = filepath.Clean(root)
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if !contains(root, abs) {
		return Location{}, apperr.Errorf(apperr.ErrForbidden, "path %q escapes the drive", rel)
	}
	if !realContains(root, abs) {
		return Location{}, apperr.Errorf(apperr.ErrForbidden, "path %q resolves outside the drive", rel)
	}
	return locate(root, abs), nil
}

func locate(root, abs string) Location {
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." {
		rel = ""
	}
	return Location{Root: root, Abs: abs, Rel: filepath.ToSlash(rel)}
}

func contains(root, abs string) bool {
	if abs == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(abs, prefix)
}

// realContains повторяет проверку после раскрытия симлинков для ближайшего
// существующего предка abs. Если корня ещё нет на диске, проверять нечего.
func realContains(root, abs string) bool {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return true
	}
	p := abs
	for {
		real, err := filepath.EvalSymlinks(p)
		if err == nil {
			return contains(realRoot, real)
		}
		if !os.IsNotExist(err) {
			return false
		}
		if p == root {
			return true
		}
		p = filepath.Dir(p)
	}
}

// Rebase переводит путь rel (относительно диска) в путь относительно base,
// отбрасывая их наибольший общий префикс по сегментам.
func Rebase(base, rel string) string {
	bs := segments(base)
	rs := segments(rel)
	i := 0
	for i < len(bs) && i < len(rs) && bs[i] == rs[i] {
		i++
	}
	return strings.Join(rs[i:], "/")
}

func segments(p string) []string {
	p = strings.Trim(filepath.ToSlash(p), "/")
	if p == "" || p == "." {
		return nil
	}
	return strings.Split(p, "/")
}
