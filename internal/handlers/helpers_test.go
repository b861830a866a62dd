package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"XmediaCenter/internal/config"
	"XmediaCenter/internal/drive"
	"XmediaCenter/internal/events"
	"XmediaCenter/internal/handlers"
	"XmediaCenter/internal/metrics"
	"XmediaCenter/internal/middleware"
	"XmediaCenter/internal/plugin"
	"XmediaCenter/internal/repo"
	"XmediaCenter/internal/service"
)

const testSecret = "test-secret"

type testServer struct {
	router http.Handler
	cfg    *config.Config
	users  *service.UserService
	tasks  *service.TaskService
}

// --- Helpers ---
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := repo.InitDB("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := &config.Config{AuthSecret: testSecret, UploadMaxMB: 1, DriveRoot: t.TempDir()}
	logger := zap.NewNop().Sugar()
	userRepo := repo.NewUserRepository(db)
	resolver, err := drive.NewResolver(cfg.DriveRoot, userRepo)
	require.NoError(t, err)
	locks := drive.NewLocks()
	ev := events.NewEmitter(nil, logger)
	ops := metrics.New()
	registry, err := plugin.NewRegistry(plugin.CodeExec())
	require.NoError(t, err)

	users := service.NewUserService(userRepo, resolver, locks, ev, logger)
	tasks := service.NewTaskService(repo.NewTaskRepository(db), userRepo, registry, 0, ev, logger)
	t.Cleanup(tasks.Wait)

	h := handlers.NewHandler(handlers.Services{
		Users:  users,
		Drive:  service.NewDriveService(resolver, repo.NewPathRefRepository(db), locks, ev, ops, logger),
		Shares: service.NewShareService(repo.NewShareLinkRepository(db), resolver, ev, ops, logger),
		Playlists: service.NewPlaylistService(service.PlaylistDeps{
			Playlists: repo.NewPlaylistRepository(db),
			Songs:     repo.NewSongRepository(db),
			Counts:    repo.NewPlayCountRepository(db),
			Resolver:  resolver,
			Events:    ev,
			Metrics:   ops,
			Logger:    logger,
		}),
		Tasks:   tasks,
		Metrics: ops.Handler(),
		Version: "test",
	}, logger, cfg)
	return &testServer{router: h.Router, cfg: cfg, users: users, tasks: tasks}
}

func addAuthCookie(t *testing.T, req *http.Request, userID int64) {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, middleware.SetLoginCookie(rr, userID, testSecret))
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
}

// do выполняет запрос; uid == 0 — анонимно.
func (s *testServer) do(t *testing.T, method, target string, uid int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != 0 {
		addAuthCookie(t, req, uid)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	OK   bool            `json:"ok"`
	Data json.RawMessage `json:"data"`
	Kind string          `json:"kind"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

// signup регистрирует пользователя через API и возвращает его id.
func (s *testServer) signup(t *testing.T, name string) int64 {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/xms/v1/signup", 0, map[string]string{"name": name, "password": "secret"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var u struct {
		ID int64 `json:"id"`
	}
	decodeEnvelope(t, rr, &u)
	return u.ID
}
