package inference

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// InputSize is the square edge images are prepared to before classification.
const InputSize = 224

// Input is what a Classifier sees. Image is nil when the stored file could
// not be decoded.
type Input struct {
	Path  string
	Image image.Image
}

// LoadImage decodes the file at path, applying EXIF orientation.
func LoadImage(path string) (image.Image, error) {
	const op = "inference.LoadImage"
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return img, nil
}

// Prepare center-crops and scales img to InputSize x InputSize.
func Prepare(img image.Image) *image.NRGBA {
	return imaging.Fill(img, InputSize, InputSize, imaging.Center, imaging.Lanczos)
}
