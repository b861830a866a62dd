package service

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/drive"
	"XmediaCenter/internal/events"
	"XmediaCenter/internal/metrics"
	"XmediaCenter/internal/repo"
)

// DriveService выполняет операции над файлами диска пользователя и поддерживает
// согласованность песен и счётчиков воспроизведений с файловой системой.
//
// Изменяющие операции сериализуются по пользователю. Файловая операция
// выполняется внутри транзакции обновления ссылок: её ошибка откатывает ссылки.
// Если процесс упадёт между успешной файловой операцией и фиксацией транзакции,
// ссылки останутся на старых путях.
type DriveService struct {
	resolver *drive.Resolver
	refs     repo.PathRefRepository
	locks    *drive.Locks
	events   *events.Emitter
	metrics  metrics.Ops
	logger   *zap.SugaredLogger
}

func NewDriveService(resolver *drive.Resolver, refs repo.PathRefRepository, locks *drive.Locks, ev *events.Emitter, ops metrics.Ops, logger *zap.SugaredLogger) *DriveService {
	if locks == nil {
		locks = drive.NewLocks()
	}
	if ops == nil {
		ops = metrics.Noop{}
	}
	return &DriveService{resolver: resolver, refs: refs, locks: locks, events: ev, metrics: ops, logger: logger}
}

// List читает папку rel.
func (s *DriveService) List(ctx context.Context, userID int64, rel string) (_ drive.Listing, err error) {
	defer metrics.Track(s.metrics, "drive.list", time.Now(), &err)

	loc, err := s.resolver.Resolve(ctx, userID, rel)
	if err != nil {
		return drive.Listing{}, err
	}
	if err := requireDir(loc); err != nil {
		return drive.Listing{}, err
	}
	return drive.List(loc)
}

// Stat описывает один путь.
func (s *DriveService) Stat(ctx context.Context, userID int64, rel string) (drive.Entry, error) {
	loc, err := s.resolver.Resolve(ctx, userID, rel)
	if err != nil {
		return drive.Entry{}, err
	}
	return drive.Stat(loc)
}

// Mkdir создаёт папку rel. Родитель должен существовать.
func (s *DriveService) Mkdir(ctx context.Context, userID int64, rel string) (_ drive.Entry, err error) {
	defer metrics.Track(s.metrics, "drive.mkdir", time.Now(), &err)

	loc, err := s.resolver.Resolve(ctx, userID, rel)
	if err != nil {
		return drive.Entry{}, err
	}
	if loc.IsRoot() {
		return drive.Entry{}, apperr.Errorf(apperr.ErrAlreadyExists, "drive root")
	}
	if err := drive.ValidateName(loc.Name()); err != nil {
		return drive.Entry{}, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if info, err := os.Stat(loc.Abs); err == nil {
		if !info.IsDir() {
			return drive.Entry{}, apperr.Errorf(apperr.ErrIO, "%q exists and is a file", loc.Rel)
		}
		return drive.Entry{}, apperr.Errorf(apperr.ErrAlreadyExists, "%q", loc.Rel)
	}
	if err := os.Mkdir(loc.Abs, 0o755); err != nil {
		return drive.Entry{}, apperr.FromOS(err)
	}
	s.events.Emit(ctx, events.Event{Type: events.PathCreated, Owner: userID, Path: loc.Rel})
	return drive.Stat(loc)
}

// Rename меняет последний сегмент пути rel на newName.
func (s *DriveService) Rename(ctx context.Context, userID int64, rel, newName string) (_ drive.Entry, err error) {
	defer metrics.Track(s.metrics, "drive.rename", time.Now(), &err)

	if err := drive.ValidateName(newName); err != nil {
		return drive.Entry{}, err
	}
	src, err := s.resolveMutable(ctx, userID, rel)
	if err != nil {
		return drive.Entry{}, err
	}
	dst, err := drive.Within(src.Root, path.Join(path.Dir(src.Rel), newName))
	if err != nil {
		return drive.Entry{}, err
	}
	if err := s.relocate(ctx, userID, src, dst); err != nil {
		return drive.Entry{}, err
	}
	s.events.Emit(ctx, events.Event{Type: events.PathRenamed, Owner: userID, Path: src.Rel, NewPath: dst.Rel})
	return drive.Stat(dst)
}

// Move переносит rel в папку destDir, сохраняя имя.
func (s *DriveService) Move(ctx context.Context, userID int64, rel, destDir string) (_ drive.Entry, err error) {
	defer metrics.Track(s.metrics, "drive.move", time.Now(), &err)

	src, dst, err := s.resolveTransfer(ctx, userID, rel, destDir)
	if err != nil {
		return drive.Entry{}, err
	}
	if err := s.relocate(ctx, userID, src, dst); err != nil {
		return drive.Entry{}, err
	}
	s.events.Emit(ctx, events.Event{Type: events.PathMoved, Owner: userID, Path: src.Rel, NewPath: dst.Rel})
	return drive.Stat(dst)
}

// Copy копирует файл или папку rel в папку destDir. Ссылки песен не затрагиваются.
func (s *DriveService) Copy(ctx context.Context, userID int64, rel, destDir string) (_ drive.Entry, err error) {
	defer metrics.Track(s.metrics, "drive.copy", time.Now(), &err)

	src, dst, err := s.resolveTransfer(ctx, userID, rel, destDir)
	if err != nil {
		return drive.Entry{}, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	info, err := os.Lstat(src.Abs)
	if err != nil {
		return drive.Entry{}, apperr.FromOS(err)
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return drive.Entry{}, apperr.Errorf(apperr.ErrInvalidArgument, "%q is a symlink", src.Rel)
	}
	if _, err := os.Lstat(dst.Abs); err == nil {
		return drive.Entry{}, apperr.Errorf(apperr.ErrAlreadyExists, "%q", dst.Rel)
	}
	if err := copyTree(src.Abs, dst.Abs); err != nil {
		_ = os.RemoveAll(dst.Abs)
		return drive.Entry{}, err
	}
	s.events.Emit(ctx, events.Event{Type: events.PathCreated, Owner: userID, Path: dst.Rel})
	return drive.Stat(dst)
}

// Delete удаляет файл или папку rel вместе со ссылками песен и счётчиками,
// указывающими на неё (для папки — на всё её содержимое).
func (s *DriveService) Delete(ctx context.Context, userID int64, rel string) (err error) {
	defer metrics.Track(s.metrics, "drive.delete", time.Now(), &err)

	loc, err := s.resolveMutable(ctx, userID, rel)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	info, err := os.Lstat(loc.Abs)
	if err != nil {
		return apperr.FromOS(err)
	}
	recursive := info.IsDir()
	n, err := s.refs.Delete(ctx, userID, loc.Rel, recursive, func() error {
		if recursive {
			return apperr.FromOS(os.RemoveAll(loc.Abs))
		}
		return apperr.FromOS(os.Remove(loc.Abs))
	})
	if err != nil {
		return err
	}
	s.logger.Infow("path deleted", "user_id", userID, "path", loc.Rel, "refs", n)
	s.events.Emit(ctx, events.Event{Type: events.PathDeleted, Owner: userID, Path: loc.Rel})
	return nil
}

// Upload создаёт в папке dir новый файл name из r.
func (s *DriveService) Upload(ctx context.Context, userID int64, dir, name string, r io.Reader) (_ drive.Entry, err error) {
	defer metrics.Track(s.metrics, "drive.upload", time.Now(), &err)

	if err := drive.ValidateName(name); err != nil {
		return drive.Entry{}, err
	}
	parent, err := s.resolver.Resolve(ctx, userID, dir)
	if err != nil {
		return drive.Entry{}, err
	}
	if err := requireDir(parent); err != nil {
		return drive.Entry{}, err
	}
	dst, err := drive.Within(parent.Root, path.Join(parent.Rel, name))
	if err != nil {
		return drive.Entry{}, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	f, err := os.OpenFile(dst.Abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return drive.Entry{}, apperr.FromOS(err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(dst.Abs)
		return drive.Entry{}, apperr.Errorf(apperr.ErrIO, "upload %q: %v", dst.Rel, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst.Abs)
		return drive.Entry{}, apperr.FromOS(err)
	}
	s.events.Emit(ctx, events.Event{Type: events.PathCreated, Owner: userID, Path: dst.Rel})
	return drive.Stat(dst)
}

// FileRealpath возвращает абсолютный путь файла rel для отдачи клиенту.
func (s *DriveService) FileRealpath(ctx context.Context, userID int64, rel string) (drive.Location, drive.Entry, error) {
	loc, err := s.resolver.Resolve(ctx, userID, rel)
	if err != nil {
		return drive.Location{}, drive.Entry{}, err
	}
	e, err := requireFile(loc)
	return loc, e, err
}

// resolveMutable разрешает путь, который можно переименовать, перенести или удалить.
func (s *DriveService) resolveMutable(ctx context.Context, userID int64, rel string) (drive.Location, error) {
	loc, err := s.resolver.Resolve(ctx, userID, rel)
	if err != nil {
		return drive.Location{}, err
	}
	if loc.IsRoot() {
		return drive.Location{}, apperr.Errorf(apperr.ErrForbidden, "drive root cannot be modified")
	}
	return loc, nil
}

// resolveTransfer разрешает источник и цель переноса/копирования в папку destDir.
func (s *DriveService) resolveTransfer(ctx context.Context, userID int64, rel, destDir string) (src, dst drive.Location, err error) {
	src, err = s.resolveMutable(ctx, userID, rel)
	if err != nil {
		return
	}
	dir, err := drive.Within(src.Root, destDir)
	if err != nil {
		return
	}
	if err = requireDir(dir); err != nil {
		return
	}
	if dir.Rel == src.Rel || strings.HasPrefix(dir.Rel, src.Rel+"/") {
		err = apperr.Errorf(apperr.ErrInvalidArgument, "cannot put %q inside itself", src.Rel)
		return
	}
	dst, err = drive.Within(src.Root, path.Join(dir.Rel, path.Base(src.Rel)))
	return
}

// relocate переименовывает src в dst и переписывает ссылки в одной транзакции.
func (s *DriveService) relocate(ctx context.Context, userID int64, src, dst drive.Location) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if _, err := os.Lstat(src.Abs); err != nil {
		return apperr.FromOS(err)
	}
	if _, err := os.Lstat(dst.Abs); err == nil {
		return apperr.Errorf(apperr.ErrAlreadyExists, "%q", dst.Rel)
	}
	n, err := s.refs.Move(ctx, userID, src.Rel, dst.Rel, func() error {
		return apperr.FromOS(os.Rename(src.Abs, dst.Abs))
	})
	if err != nil {
		return err
	}
	s.logger.Infow("path relocated", "user_id", userID, "from", src.Rel, "to", dst.Rel, "refs", n)
	return nil
}

func requireDir(loc drive.Location) error {
	info, err := os.Stat(loc.Abs)
	if err != nil {
		return apperr.FromOS(err)
	}
	if !info.IsDir() {
		return apperr.Errorf(apperr.ErrInvalidArgument, "%q is not a directory", loc.Rel)
	}
	return nil
}

func requireFile(loc drive.Location) (drive.Entry, error) {
	e, err := drive.Stat(loc)
	if err != nil {
		return drive.Entry{}, err
	}
	if e.IsDir() {
		return drive.Entry{}, apperr.Errorf(apperr.ErrInvalidArgument, "%q is not a file", loc.Rel)
	}
	return e, nil
}

// copyTree копирует файл или дерево папок. Симлинки пропускаются.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return apperr.FromOS(err)
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return apperr.FromOS(err)
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			return nil
		case d.IsDir():
			return apperr.FromOS(os.Mkdir(target, 0o755))
		default:
			return copyFile(p, target)
		}
	})
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return apperr.FromOS(err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return apperr.FromOS(err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return apperr.FromOS(err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = apperr.FromOS(cerr)
		}
	}()
	if _, err := io.Copy(out, in); err != nil {
		return apperr.FromOS(err)
	}
	return nil
}

