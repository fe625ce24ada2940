package media

import (
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// RAW extensions recognized by extension probing. Matches the camera bodies
// the catalog reader accepts.
var rawExtensions = map[string]bool{
	".nef": true, ".nrw": true,
	".cr2": true, ".cr3": true,
	".arw": true, ".srf": true,
	".raf": true,
	".dng": true,
	".orf": true,
	".rw2": true,
}

// IsRawFile reports whether the path has a camera RAW extension.
func IsRawFile(path string) bool {
	return rawExtensions[strings.ToLower(filepath.Ext(path))]
}

// Decoder produces the single shared thumbnail every enabled model consumes.
type Decoder struct {
	rawLoader *RawLoader
}

// NewDecoder creates a decoder; the RAW loader shells out to exiftool and
// dcraw when available.
func NewDecoder() *Decoder {
	return &Decoder{rawLoader: NewRawLoader()}
}

// Decode opens the image at path and returns an RGB thumbnail whose longest
// side is at most targetSize (never upscaled). Returns nil on unrecoverable
// decode failure; it never panics and never returns a partial image.
//
// For RAW inputs the embedded preview is used and the EXIF orientation is
// taken as already applied (cameras rotate their previews). For standard
// formats the orientation tag is read from the original file, not from the
// decoded pixels.
func (d *Decoder) Decode(path string, targetSize int) *image.NRGBA {
	if targetSize <= 0 {
		log.Printf("decoder: invalid target size %d for %s", targetSize, path)
		return nil
	}

	if IsRawFile(path) {
		img := d.rawLoader.LoadPreview(path)
		if img == nil {
			log.Printf("decoder: no usable RAW preview for %s", path)
			return nil
		}
		return downscale(img, targetSize, imaging.Lanczos)
	}

	img, err := imaging.Open(path)
	if err != nil {
		log.Printf("decoder: failed to open %s: %v", path, err)
		return nil
	}

	oriented := ApplyOrientation(img, ReadOrientation(path))
	return downscale(oriented, targetSize, imaging.Lanczos)
}

// downscale fits the longest side to targetSize, or copies when already
// small enough. Output is always NRGBA so every consumer sees one layout.
func downscale(img image.Image, targetSize int, filter imaging.ResampleFilter) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}
	if w <= targetSize && h <= targetSize {
		return imaging.Clone(img)
	}
	if w >= h {
		return imaging.Resize(img, targetSize, 0, filter)
	}
	return imaging.Resize(img, 0, targetSize, filter)
}

// Resample further downscales the shared thumbnail for one consumer's
// profile. Consumers with a target equal to the shared decode get a clone.
func Resample(img image.Image, p Profile) *image.NRGBA {
	return downscale(img, p.TargetSize, p.Resample)
}

// ReadOrientation reads EXIF tag 0x0112 from the original file. Returns 1
// (upright) when the tag is absent, unreadable, or the file is RAW: the
// extracted previews are already camera-rotated.
func ReadOrientation(path string) int {
	if IsRawFile(path) {
		return 1
	}
	f, err := os.Open(path)
	if err != nil {
		return 1
	}
	defer f.Close()

	exifData, err := exif.Decode(f)
	if err != nil {
		return 1
	}
	tag, err := exifData.Get(exif.Orientation)
	if err != nil || tag == nil {
		return 1
	}
	val, err := tag.Int(0)
	if err != nil || val < 1 || val > 8 {
		return 1
	}
	return val
}

// ApplyOrientation applies the standard 8-value EXIF rotation/flip table.
func ApplyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
