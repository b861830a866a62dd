package drive

import (
	"strings"

	"XmediaCenter/internal/apperr"
)

// forbiddenNameChars — символы, которые в других местах используются как разделители.
const forbiddenNameChars = "\"'/\\()&[]{}"

// ValidateName проверяет имя одного сегмента (новая папка, новое имя, загружаемый файл).
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return apperr.Errorf(apperr.ErrInvalidArgument, "invalid name %q", name)
	case strings.ContainsAny(name, forbiddenNameChars), strings.ContainsRune(name, 0):
		return apperr.Errorf(apperr.ErrInvalidArgument, "name %q contains forbidden characters", name)
	}
	return nil
}
