package drive

import (
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"XmediaCenter/internal/apperr"
)

const (
	TypeFile = "file"
	TypeDir  = "dir"

	DefaultMime = "application/octet-stream"
)

// Entry — описание файла или папки для листинга.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Type    string    `json:"type"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
	Mime    string    `json:"mime,omitempty"`
}

// IsDir сообщает, является ли запись папкой.
func (e Entry) IsDir() bool { return e.Type == TypeDir }

// Summary — счётчики листинга.
type Summary struct {
	Total int `json:"total"`
	Files int `json:"files"`
	Dirs  int `json:"dirs"`
}

// Listing — результат чтения папки.
type Listing struct {
	List []Entry `json:"list"`
	Info Summary `json:"info"`
}

// media types that are missing from most system mime tables
var knownTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
	".wma":  "audio/x-ms-wma",
	".ape":  "audio/ape",
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".lrc":  "text/plain",
}

// MimeOf определяет MIME файла: сначала по расширению, затем по содержимому.
func MimeOf(abs string) string {
	ext := strings.ToLower(filepath.Ext(abs))
	if ext != "" {
		if m, ok := knownTypes[ext]; ok {
			return m
		}
		if m := mime.TypeByExtension(ext); m != "" {
			return m
		}
	}
	if m, err := mimetype.DetectFile(abs); err == nil && m != nil {
		return m.String()
	}
	return DefaultMime
}

// IsAudio сообщает, относится ли MIME к аудио.
func IsAudio(mimeType string) bool { return strings.HasPrefix(mimeType, "audio/") }

// EntryOf строит Entry по уже полученному FileInfo.
func EntryOf(abs, rel string, info fs.FileInfo) Entry {
	e := Entry{
		Name:    info.Name(),
		Path:    rel,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC(),
	}
	if info.IsDir() {
		e.Type = TypeDir
		e.Size = 0
		return e
	}
	e.Type = TypeFile
	e.Mime = MimeOf(abs)
	return e
}

// Stat описывает один путь.
func Stat(loc Location) (Entry, error) {
	info, err := os.Stat(loc.Abs)
	if err != nil {
		return Entry{}, apperr.FromOS(err)
	}
	return EntryOf(loc.Abs, loc.Rel, info), nil
}

// List читает папку. Порядок — порядок os.ReadDir, контракт порядка не даётся.
func List(loc Location) (Listing, error) {
	items, err := os.ReadDir(loc.Abs)
	if err != nil {
		return Listing{}, apperr.FromOS(err)
	}
	out := Listing{List: make([]Entry, 0, len(items))}
	for _, d := range items {
		abs := filepath.Join(loc.Abs, d.Name())
		info, err := os.Stat(abs)
		if err != nil {
			// битый симлинк и т.п.: описываем саму запись
			if info, err = d.Info(); err != nil {
				continue
			}
		}
		e := EntryOf(abs, path.Join(loc.Rel, d.Name()), info)
		out.List = append(out.List, e)
		if e.IsDir() {
			out.Info.Dirs++
		} else {
			out.Info.Files++
		}
	}
	out.Info.Total = len(out.List)
	return out, nil
}
