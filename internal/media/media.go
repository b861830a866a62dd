// Package media читает теги и обложки аудиофайлов.
package media

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"XmediaCenter/internal/apperr"
)

// Tags — метаданные песни, которые отдаются вместе со списком плейлиста.
type Tags struct {
	Title    string `json:"title"`
	Album    string `json:"album"`
	Artist   string `json:"artist"`
	Composer string `json:"composer"`
}

// Artwork — изображение с MIME-типом.
type Artwork struct {
	Mime string `json:"mime"`
	Data []byte `json:"-"`
}

// Extractor — источник метаданных медиафайлов.
type Extractor interface {
	ReadTags(path string) (Tags, error)
	ReadArtwork(path string) (Artwork, error)
}

// TagExtractor реализует Extractor поверх github.com/dhowden/tag.
type TagExtractor struct{}

var _ Extractor = TagExtractor{}

// ReadTags читает теги. Файл без тегов не ошибка: заголовком становится имя файла.
func (TagExtractor) ReadTags(path string) (Tags, error) {
	fallback := Tags{Title: stem(path)}
	m, err := readMetadata(path)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return fallback, nil
		}
		return Tags{}, err
	}
	t := Tags{
		Title:    m.Title(),
		Album:    m.Album(),
		Artist:   m.Artist(),
		Composer: m.Composer(),
	}
	if t.Title == "" {
		t.Title = fallback.Title
	}
	return t, nil
}

// ReadArtwork возвращает встроенную обложку или ErrNotFound.
func (TagExtractor) ReadArtwork(path string) (Artwork, error) {
	m, err := readMetadata(path)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return Artwork{}, apperr.Errorf(apperr.ErrNotFound, "no artwork in %s", filepath.Base(path))
		}
		return Artwork{}, err
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return Artwork{}, apperr.Errorf(apperr.ErrNotFound, "no artwork in %s", filepath.Base(path))
	}
	mt := pic.MIMEType
	if mt == "" {
		mt = mimetype.Detect(pic.Data).String()
	}
	return Artwork{Mime: mt, Data: pic.Data}, nil
}

func readMetadata(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.FromOS(err)
	}
	defer f.Close()
	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return nil, err
		}
		// нераспознанный формат приравниваем к отсутствию тегов
		return nil, tag.ErrNoTagsFound
	}
	return m, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

//go:embed default_artwork.png
var defaultImage []byte

// DefaultImage — встроенное изображение по умолчанию (обложка, аватар).
func DefaultImage() Artwork {
	return Artwork{Mime: "image/png", Data: defaultImage}
}

// DefaultArtworkFile — имя файла в BLOB_PATH, переопределяющего обложку по умолчанию.
const DefaultArtworkFile = "defaultArtwork.jpg"

// Artworks отдаёт обложку песни, подставляя обложку по умолчанию при любой ошибке.
type Artworks struct {
	ex       Extractor
	fallback Artwork
	logger   *zap.SugaredLogger
}

// NewArtworks создаёт источник обложек. Если в blobPath есть defaultArtwork.jpg,
// он используется вместо встроенного изображения.
func NewArtworks(ex Extractor, blobPath string, logger *zap.SugaredLogger) *Artworks {
	fb := DefaultImage()
	if blobPath != "" {
		if b, err := os.ReadFile(filepath.Join(blobPath, DefaultArtworkFile)); err == nil && len(b) > 0 {
			fb = Artwork{Mime: mimetype.Detect(b).String(), Data: b}
		}
	}
	return &Artworks{ex: ex, fallback: fb, logger: logger}
}

// For возвращает обложку файла path.
func (a *Artworks) For(path string) Artwork {
	art, err := a.ex.ReadArtwork(path)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			a.logger.Warnw("artwork extraction failed, using default", "path", path, "error", err)
		}
		return a.fallback
	}
	return art
}
