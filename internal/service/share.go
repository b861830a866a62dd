package service

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/drive"
	"XmediaCenter/internal/events"
	"XmediaCenter/internal/metrics"
	"XmediaCenter/internal/model"
	"XmediaCenter/internal/repo"
)

const tokenAttempts = 3

// ShareInfo — результат разрешения ссылки.
type ShareInfo struct {
	Link  *model.ShareLink `json:"link"`
	Entry drive.Entry      `json:"entry"`
}

// ShareService выдаёт и разрешает ссылки общего доступа.
type ShareService struct {
	links    repo.ShareLinkRepository
	resolver *drive.Resolver
	events   *events.Emitter
	metrics  metrics.Ops
	logger   *zap.SugaredLogger
	newToken func() string
}

func NewShareService(links repo.ShareLinkRepository, resolver *drive.Resolver, ev *events.Emitter, ops metrics.Ops, logger *zap.SugaredLogger) *ShareService {
	if ops == nil {
		ops = metrics.Noop{}
	}
	return &ShareService{links: links, resolver: resolver, events: ev, metrics: ops, logger: logger, newToken: NewShareToken}
}

// NewShareToken возвращает 22-символьный токен: 16 случайных байт UUIDv4 в base64url.
func NewShareToken() string {
	u := uuid.New()
	return base64.RawURLEncoding.EncodeToString(u[:])
}

// Create возвращает ссылку на путь rel; повторный вызов для того же пути
// возвращает уже выданную ссылку.
func (s *ShareService) Create(ctx context.Context, userID int64, rel string) (_ *model.ShareLink, err error) {
	defer metrics.Track(s.metrics, "share.create", time.Now(), &err)

	loc, err := s.resolver.Resolve(ctx, userID, rel)
	if err != nil {
		return nil, err
	}
	if _, err := drive.Stat(loc); err != nil {
		return nil, err
	}

	for i := 0; i < tokenAttempts; i++ {
		link, created, err := s.links.CreateIfAbsent(ctx, &model.ShareLink{
			Token:   s.newToken(),
			OwnerID: userID,
			Path:    loc.Rel,
		})
		if apperr.KindOf(err) == apperr.KindAlreadyExists {
			s.logger.Warnw("share token collision, retrying", "user_id", userID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if created {
			s.events.Emit(ctx, events.Event{Type: events.ShareCreated, Owner: userID, Path: loc.Rel, ID: link.Token})
		}
		return link, nil
	}
	return nil, apperr.Errorf(apperr.ErrAlreadyExists, "could not allocate a unique share token")
}

// Resolve находит ссылку и описывает цель.
func (s *ShareService) Resolve(ctx context.Context, token string) (*ShareInfo, error) {
	link, loc, err := s.target(ctx, token)
	if err != nil {
		return nil, err
	}
	e, err := drive.Stat(loc)
	if err != nil {
		return nil, err
	}
	return &ShareInfo{Link: link, Entry: e}, nil
}

// Delete удаляет ссылку; удалить может только владелец.
func (s *ShareService) Delete(ctx context.Context, requester int64, token string) (err error) {
	defer metrics.Track(s.metrics, "share.delete", time.Now(), &err)

	link, err := s.links.Get(ctx, token)
	if err != nil {
		return err
	}
	if link.OwnerID != requester {
		return apperr.Errorf(apperr.ErrForbidden, "share link belongs to another user")
	}
	if err := s.links.Delete(ctx, token); err != nil {
		return err
	}
	s.events.Emit(ctx, events.Event{Type: events.ShareDeleted, Owner: requester, Path: link.Path, ID: token})
	return nil
}

func (s *ShareService) ListByOwner(ctx context.Context, userID int64) ([]model.ShareLink, error) {
	return s.links.ListByOwner(ctx, userID)
}

// FileRealpath возвращает файл, на который указывает ссылка.
func (s *ShareService) FileRealpath(ctx context.Context, token string) (drive.Location, drive.Entry, error) {
	_, loc, err := s.target(ctx, token)
	if err != nil {
		return drive.Location{}, drive.Entry{}, err
	}
	e, err := requireFile(loc)
	return loc, e, err
}

// ListDir читает папку rel внутри общей папки. Пути записей отсчитываются
// от корня ссылки, а не от диска владельца.
func (s *ShareService) ListDir(ctx context.Context, token, rel string) (drive.Listing, error) {
	link, err := s.links.Get(ctx, token)
	if err != nil {
		return drive.Listing{}, err
	}
	loc, err := s.resolver.ResolveWithin(ctx, link.OwnerID, link.Path, rel)
	if err != nil {
		return drive.Listing{}, err
	}
	if err := requireDir(loc); err != nil {
		return drive.Listing{}, err
	}
	listing, err := drive.List(loc)
	if err != nil {
		return drive.Listing{}, err
	}
	for i := range listing.List {
		listing.List[i].Path = drive.Rebase(link.Path, listing.List[i].Path)
	}
	return listing, nil
}

// FileInDir возвращает файл rel внутри общей папки.
func (s *ShareService) FileInDir(ctx context.Context, token, rel string) (drive.Location, drive.Entry, error) {
	link, err := s.links.Get(ctx, token)
	if err != nil {
		return drive.Location{}, drive.Entry{}, err
	}
	loc, err := s.resolver.ResolveWithin(ctx, link.OwnerID, link.Path, rel)
	if err != nil {
		return drive.Location{}, drive.Entry{}, err
	}
	e, err := requireFile(loc)
	if err != nil {
		return drive.Location{}, drive.Entry{}, err
	}
	e.Path = drive.Rebase(link.Path, e.Path)
	return loc, e, nil
}

func (s *ShareService) target(ctx context.Context, token string) (*model.ShareLink, drive.Location, error) {
	link, err := s.links.Get(ctx, token)
	if err != nil {
		return nil, drive.Location{}, err
	}
	loc, err := s.resolver.Resolve(ctx, link.OwnerID, link.Path)
	if err != nil {
		return nil, drive.Location{}, err
	}
	return link, loc, nil
}
