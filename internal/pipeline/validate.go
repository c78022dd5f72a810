package pipeline

import (
	"fmt"
	"strings"

	"onion-detect/internal/models"
)

type Validator struct {
	maxBytes int64
	allowed  map[string]struct{}
	list     string
}

func NewValidator(maxBytes int64, extensions []string) *Validator {
	v := &Validator{maxBytes: maxBytes, allowed: make(map[string]struct{}, len(extensions))}
	names := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		v.allowed[ext] = struct{}{}
		names = append(names, strings.ToUpper(ext))
	}
	v.list = strings.Join(names, ", ")
	return v
}

func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate checks req without touching disk. Checks run in order: presence,
// filename, extension, size.
func (v *Validator) Validate(req *models.UploadRequest) error {
	if req == nil {
		return &Error{
			Kind:    KindValidation,
			Code:    "No image file provided",
			Message: "Silakan pilih gambar untuk dianalisis",
			Err:     ErrMissingFile,
		}
	}
	if req.Filename == "" {
		return &Error{
			Kind:    KindValidation,
			Code:    "No file selected",
			Message: "Tidak ada file yang dipilih",
			Err:     ErrEmptyFilename,
		}
	}
	if !v.Allowed(req.Filename) {
		return &Error{
			Kind:    KindValidation,
			Code:    "Invalid file type",
			Message: fmt.Sprintf("Format file tidak didukung. Gunakan %s", v.list),
			Err:     fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Filename),
		}
	}
	size := req.Size
	if n := int64(len(req.Data)); n > size {
		size = n
	}
	if v.maxBytes > 0 && size > v.maxBytes {
		return v.TooLarge(size)
	}
	return nil
}

// TooLarge is the error for a payload of size bytes over the cap. The HTTP
// layer uses it directly when the body is cut off before the form parses.
func (v *Validator) TooLarge(size int64) error {
	return &Error{
		Kind:    KindValidation,
		Code:    "File too large",
		Message: fmt.Sprintf("Ukuran file melebihi batas %d MB", v.maxBytes>>20),
		Err:     fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, size, v.maxBytes),
	}
}

// Allowed reports whether filename carries one of the accepted extensions,
// compared case-insensitively.
func (v *Validator) Allowed(filename string) bool {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return false
	}
	_, ok := v.allowed[strings.ToLower(filename[i+1:])]
	return ok
}
