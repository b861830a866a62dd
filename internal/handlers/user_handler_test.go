package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"XmediaCenter/internal/model"
)

func hasAuthCookie(rr interface{ Result() *http.Response }) bool {
	for _, c := range rr.Result().Cookies() {
		if c.Name == "auth_token" && c.Value != "" {
			return true
		}
	}
	return false
}

func TestUser_Signup(t *testing.T) {
	s := newTestServer(t)

	t.Run("ok", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/xms/v1/signup", 0, `{"name":"john","password":"p"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, hasAuthCookie(rr), "Set-Cookie auth_token expected")
		var u model.User
		env := decodeEnvelope(t, rr, &u)
		assert.True(t, env.OK)
		assert.Equal(t, "john", u.Name)
		assert.Equal(t, model.LevelStandard, u.Level)
	})

	t.Run("conflict", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/xms/v1/signup", 0, `{"name":"john","password":"p"}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "already_exists", decodeEnvelope(t, rr, nil).Kind)
	})

	t.Run("bad name", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/xms/v1/signup", 0, `{"name":"a(b","password":"p"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("bad body", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/xms/v1/signup", 0, `{`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUser_SigninAndStatus(t *testing.T) {
	s := newTestServer(t)
	id := s.signup(t, "alice")

	t.Run("ok", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/xms/v1/signin", 0, `{"name":"alice","password":"secret"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, hasAuthCookie(rr))
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/xms/v1/signin", 0, `{"name":"alice","password":"bad"}`)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("anonymous status", func(t *testing.T) {
		rr := s.do(t, http.MethodGet, "/xms/v1/user/status", 0, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("authorized status", func(t *testing.T) {
		rr := s.do(t, http.MethodGet, "/xms/v1/user/status", id, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var u model.User
		decodeEnvelope(t, rr, &u)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "alice", u.Name)
	})

	t.Run("signout clears cookie", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/xms/v1/signout", id, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}

func TestUser_Profile(t *testing.T) {
	s := newTestServer(t)
	id := s.signup(t, "alice")

	rr := s.do(t, http.MethodPost, "/xms/v1/user/slogan", id, `{"slogan":"hi there"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, fmt.Sprintf("/xms/v1/user/%d/info", id), 0, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var u model.User
	decodeEnvelope(t, rr, &u)
	assert.Equal(t, "hi there", u.Slogan)

	s.signup(t, "bob")
	rr = s.do(t, http.MethodPost, "/xms/v1/user/name", id, `{"name":"bob"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr = s.do(t, http.MethodPost, "/xms/v1/user/name", id, `{"name":"a@b"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, http.MethodPost, "/xms/v1/user/name", id, `{"name":"anna"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = s.do(t, http.MethodGet, fmt.Sprintf("/xms/v1/user/%d/info", id), 0, nil)
	decodeEnvelope(t, rr, &u)
	assert.Equal(t, "anna", u.Name)

	rr = s.do(t, http.MethodGet, fmt.Sprintf("/xms/v1/user/%d/avatar", id), 0, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	rr = s.do(t, http.MethodPost, "/xms/v1/user/avatar", id, "plain text is not an image")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, "/xms/v1/user/password", id, `{"old":"wrong","new":"x"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = s.do(t, http.MethodPost, "/xms/v1/user/password", id, `{"old":"secret","new":"changed"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = s.do(t, http.MethodPost, "/xms/v1/signin", 0, `{"name":"anna","password":"changed"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/xms/v1/user/abc/info", 0, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, http.MethodGet, "/xms/v1/user/9999/info", 0, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUser_Delete(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")
	admin, err := s.users.CreateUser(context.Background(), "admin", "secret", "", model.LevelAdmin)
	require.NoError(t, err)

	rr := s.do(t, http.MethodDelete, fmt.Sprintf("/xms/v1/user/%d", bob), alice, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodDelete, fmt.Sprintf("/xms/v1/user/%d", bob), admin.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	_, err = s.users.Get(context.Background(), bob)
	assert.Error(t, err)

	rr = s.do(t, http.MethodDelete, fmt.Sprintf("/xms/v1/user/%d", alice), alice, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, rr.Result().Cookies(), 1)
}

func TestInfoAndMetrics(t *testing.T) {
	s := newTestServer(t)
	id := s.signup(t, "alice")

	rr := s.do(t, http.MethodGet, "/xms/v1/info", 0, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var info map[string]string
	decodeEnvelope(t, rr, &info)
	assert.Equal(t, "test", info["version"])

	rr = s.do(t, http.MethodPost, "/xms/v1/drive/mkdir", id, `{"path":"music"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/metrics", 0, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `xms_operations_total{kind="ok",op="drive.mkdir"} 1`)
}
