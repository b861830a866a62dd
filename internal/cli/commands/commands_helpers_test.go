package commands

import (
	"path/filepath"
	"testing"

	"XmediaCenter/internal/config"
)

// withTempConfig направляет базу и корень дисков во временную папку теста.
func withTempConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DatabaseDSN: filepath.Join(dir, "xms.db"),
		DriveRoot:   filepath.Join(dir, "drive"),
	}
}
