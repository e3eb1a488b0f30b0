package core

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrFileType = errors.New("file type not allowed")

	allowedUploadExts = map[string]bool{
		".txt":  true,
		".pdf":  true,
		".png":  true,
		".jpg":  true,
		".jpeg": true,
		".gif":  true,
		".doc":  true,
		".docx": true,
	}

	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)
)

// SanitizeFilename strips any path components and collapses unsafe characters,
// so an uploaded name can never escape the upload directory.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}

// UploadFilename builds the stored name for an upload: unix-time prefix plus a
// short random component for uniqueness, then the sanitized original name.
func UploadFilename(original string) string {
	sanitized := SanitizeFilename(original)
	return strconv.FormatInt(time.Now().Unix(), 10) + "_" + uuid.New().String()[:8] + "_" + sanitized
}

// SaveUpload stores an uploaded file under dir and returns the stored filename.
// A nil header is not an error; it returns "" so attachments stay optional.
func SaveUpload(fh *multipart.FileHeader, dir string) (string, error) {
	if fh == nil || fh.Filename == "" {
		return "", nil
	}
	if !allowedUploadExts[strings.ToLower(filepath.Ext(fh.Filename))] {
		return "", ErrFileType
	}

	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}

	name := UploadFilename(fh.Filename)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Wrap(err, "creating upload file")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", errors.Wrap(err, "writing upload")
	}
	return name, nil
}
