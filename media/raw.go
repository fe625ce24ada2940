package media

import (
	"bytes"
	"fmt"
	"image"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// RawLoader extracts a usable render from camera RAW files without
// demosaicing in-process. Priority: largest embedded JPEG preview via
// exiftool, then a half-size dcraw render. Every attempt works through a
// temp file that is removed before returning.
type RawLoader struct {
	TempDir string

	hasExiftool bool
	hasDcraw    bool
}

// NewRawLoader probes the PATH once for the external converters.
func NewRawLoader() *RawLoader {
	l := &RawLoader{TempDir: os.TempDir()}
	if _, err := exec.LookPath("exiftool"); err == nil {
		l.hasExiftool = true
	} else {
		log.Println("raw: exiftool not found, RAW preview extraction disabled")
	}
	if _, err := exec.LookPath("dcraw"); err == nil {
		l.hasDcraw = true
	}
	return l
}

// LoadPreview returns the decoded RAW preview, or nil when nothing usable
// could be extracted. The caller treats nil as a metadata-only record.
func (l *RawLoader) LoadPreview(path string) *image.NRGBA {
	if l.hasExiftool {
		// JpgFromRaw is the full-size render some bodies embed; PreviewImage
		// is the smaller but universal fallback.
		for _, tag := range []string{"-JpgFromRaw", "-PreviewImage", "-ThumbnailImage"} {
			if img := l.extractPreviewTag(path, tag); img != nil {
				return img
			}
		}
	}
	if l.hasDcraw {
		if img := l.halfSizeRender(path); img != nil {
			return img
		}
	}
	return nil
}

func (l *RawLoader) tempFile(ext string) string {
	return filepath.Join(l.TempDir, fmt.Sprintf("fotocat_raw_%s%s", uuid.NewString(), ext))
}

// extractPreviewTag pulls one binary preview tag with exiftool into a temp
// file and decodes it.
func (l *RawLoader) extractPreviewTag(path, tag string) *image.NRGBA {
	tempName := l.tempFile(".jpg")
	defer os.Remove(tempName)

	outFile, err := os.Create(tempName)
	if err != nil {
		log.Printf("raw: failed to create temp file for %s: %v", tag, err)
		return nil
	}

	cmd := exec.Command("exiftool", "-b", tag, path)
	cmd.Stdout = outFile
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	outFile.Close()

	if runErr != nil {
		return nil
	}
	info, err := os.Stat(tempName)
	if err != nil || info.Size() == 0 {
		return nil
	}

	img, err := imaging.Open(tempName)
	if err != nil {
		log.Printf("raw: %s extraction for %s produced undecodable data: %v", tag, path, err)
		return nil
	}
	return imaging.Clone(img)
}

// halfSizeRender asks dcraw for a quick half-resolution demosaic, the
// fallback for bodies whose files embed no preview at all.
func (l *RawLoader) halfSizeRender(path string) *image.NRGBA {
	tempName := l.tempFile(".tiff")
	defer os.Remove(tempName)

	outFile, err := os.Create(tempName)
	if err != nil {
		return nil
	}

	// -h half-size, -T TIFF, -c stdout, -w camera white balance
	cmd := exec.Command("dcraw", "-h", "-T", "-c", "-w", path)
	cmd.Stdout = outFile
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	outFile.Close()

	if runErr != nil {
		log.Printf("raw: dcraw half-size render failed for %s: %s", path, stderr.String())
		return nil
	}

	img, err := imaging.Open(tempName)
	if err != nil {
		return nil
	}
	return imaging.Clone(img)
}
