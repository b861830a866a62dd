package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"XmediaCenter/internal/apperr"
)

func TestRegistry_Observe(t *testing.T) {
	r := New()
	r.Observe("drive.rename", nil, time.Millisecond)
	r.Observe("drive.rename", apperr.Errorf(apperr.ErrForbidden, "escape"), time.Millisecond)
	r.Observe("drive.rename", errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.total.WithLabelValues("drive.rename", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.total.WithLabelValues("drive.rename", "forbidden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.total.WithLabelValues("drive.rename", "internal")))
}

func TestRegistry_Handler(t *testing.T) {
	r := New()
	r.Observe("share.create", nil, time.Millisecond)

	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `xms_operations_total{kind="ok",op="share.create"} 1`)
}

func TestTrack(t *testing.T) {
	r := New()
	func() (err error) {
		defer Track(r, "playlist.swap", time.Now(), &err)
		return apperr.Errorf(apperr.ErrNotFound, "song")
	}()
	assert.Equal(t, 1.0, testutil.ToFloat64(r.total.WithLabelValues("playlist.swap", "not_found")))

	// nil Ops допустим
	Track(nil, "x", time.Now(), nil)
	Noop{}.Observe("x", nil, 0)
}
