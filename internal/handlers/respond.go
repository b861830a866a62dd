package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"go.uber.org/zap"

	"XmediaCenter/internal/apperr"
	"XmediaCenter/internal/drive"
	"XmediaCenter/internal/media"
)

// Envelope — общий формат ответа API.
type Envelope struct {
	OK   bool   `json:"ok"`
	Data any    `json:"data"`
	Kind string `json:"kind,omitempty"`
}

// statusOf переводит вид ошибки в HTTP-код.
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAlreadyExists:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{OK: true, Data: data})
}

// fail отвечает ошибкой. Внутренние ошибки логируются, клиенту уходит общий текст.
func fail(w http.ResponseWriter, logger *zap.SugaredLogger, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	msg := err.Error()
	if kind == apperr.KindInternal || kind == apperr.KindIO {
		logger.Errorw("request failed", "method", r.Method, "uri", r.RequestURI, "error", err)
		if kind == apperr.KindInternal {
			msg = "internal error"
		}
	}
	writeJSON(w, statusOf(kind), Envelope{OK: false, Data: msg, Kind: string(kind)})
}

// decode читает JSON-тело запроса в dst.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Errorf(apperr.ErrInvalidArgument, "invalid request body: %v", err)
	}
	return nil
}

// int64Param разбирает числовой параметр пути или запроса.
func int64Param(name, raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Errorf(apperr.ErrInvalidArgument, "%s must be an integer", name)
	}
	return v, nil
}

// intQuery читает необязательный числовой параметр запроса.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.Errorf(apperr.ErrInvalidArgument, "%s must be a non-negative integer", name)
	}
	return v, nil
}

// serveFile отдаёт файл с поддержкой Range и условных запросов.
func serveFile(w http.ResponseWriter, r *http.Request, loc drive.Location, e drive.Entry) error {
	f, err := os.Open(loc.Abs)
	if err != nil {
		return apperr.FromOS(err)
	}
	defer f.Close()
	if e.Mime != "" {
		w.Header().Set("Content-Type", e.Mime)
	}
	http.ServeContent(w, r, e.Name, e.ModTime, f)
	return nil
}

func serveImage(w http.ResponseWriter, art media.Artwork) {
	w.Header().Set("Content-Type", art.Mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}

// isBodyTooLarge сообщает, что тело превысило MaxBytesReader.
func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
