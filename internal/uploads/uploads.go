// Package uploads fingerprints uploaded images and keeps a short-lived copy
// of them on disk for the duration of one detection.
package uploads

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const fallbackName = "uploaded_image.jpg"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Fingerprint returns the hex md5 digest of data.
func Fingerprint(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// SanitizeFilename reduces name to a flat ASCII file name safe to join onto
// the upload directory. An empty string means nothing usable was left.
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)
	var b strings.Builder
	for _, r := range name {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(b.String())
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

type TempStore struct {
	dir string
	now func() time.Time
}

func NewTempStore(dir string) *TempStore {
	return &TempStore{dir: dir, now: time.Now}
}

// TempFile is a saved upload. Release must be called once the request is
// done with it.
type TempFile struct {
	Path string
}

// Save writes data under the upload directory, creating it if needed. The
// file name is timestamp-prefixed and carries a random component so that
// concurrent uploads of the same name never collide.
func (s *TempStore) Save(filename string, data []byte) (*TempFile, error) {
	const op = "uploads.Save"

	name := SanitizeFilename(filename)
	if name == "" {
		name = fallbackName
	}
	name = fmt.Sprintf("%s_%s_%s", s.now().Format("20060102_150405"), uuid.New().String()[:8], name)

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &TempFile{Path: path}, nil
}

// Release deletes the file. A file that is already gone is not an error.
func (f *TempFile) Release() error {
	const op = "uploads.Release"
	if f == nil || f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
