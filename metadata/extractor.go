package metadata

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	exiftool "github.com/barasher/go-exiftool"

	"github.com/gfurlani/fotocatalogo/models"
)

// Extractor reads EXIF/IPTC/XMP from source files and fills the Technical,
// Geo, Authorship, and Editorial sections of a record. Extraction is always
// partial-tolerant: fields absent in the source stay nil and the record is
// still emitted.
type Extractor struct {
	et *exiftool.Exiftool
}

// NewExtractor starts a long-lived exiftool session for RAW formats the
// in-process EXIF parser cannot read. Without exiftool on the PATH, RAW
// files degrade to whatever goexif can salvage.
func NewExtractor() *Extractor {
	et, err := exiftool.NewExiftool()
	if err != nil {
		log.Printf("metadata: exiftool unavailable, RAW metadata limited: %v", err)
		return &Extractor{}
	}
	return &Extractor{et: et}
}

// Close shuts down the exiftool session.
func (e *Extractor) Close() {
	if e.et != nil {
		if err := e.et.Close(); err != nil {
			log.Printf("metadata: exiftool close: %v", err)
		}
		e.et = nil
	}
}

// Extract populates record from the file at record.Filepath. An unreadable
// file is the only error; per-field extraction failures degrade to nil.
func (e *Extractor) Extract(record *models.ImageRecord) error {
	path := record.Filepath
	record.Format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	size := info.Size()
	record.FileSize = &size

	if record.IsRaw && e.et != nil {
		e.extractWithExiftool(record)
	} else {
		extractWithGoexif(record)
	}

	extractEditorial(record)
	deriveGeometry(record)
	return nil
}

// deriveGeometry fills aspect_ratio and megapixels once dimensions are known.
func deriveGeometry(record *models.ImageRecord) {
	if record.Width == nil || record.Height == nil {
		return
	}
	w, h := float64(*record.Width), float64(*record.Height)
	if w <= 0 || h <= 0 {
		return
	}
	ratio := math.Round(w/h*1000) / 1000
	mp := math.Round(w*h/1e6*100) / 100
	record.AspectRatio = &ratio
	record.Megapixels = &mp
}

// extractWithExiftool maps exiftool's composite fields onto the record.
// Used for RAW files, whose containers goexif cannot parse.
func (e *Extractor) extractWithExiftool(record *models.ImageRecord) {
	metas := e.et.ExtractMetadata(record.Filepath)
	if len(metas) == 0 {
		return
	}
	m := metas[0]
	if m.Err != nil {
		log.Printf("metadata: exiftool error for %s: %v", record.Filepath, m.Err)
		return
	}

	record.Width = etInt(m, "ImageWidth")
	record.Height = etInt(m, "ImageHeight")
	record.CameraMake = etString(m, "Make")
	record.CameraModel = etString(m, "Model")
	record.LensModel = etString(m, "LensModel")
	record.FocalLength = etFloat(m, "FocalLength")
	record.FocalLength35mm = etInt(m, "FocalLengthIn35mmFormat")
	record.Aperture = etFloat(m, "Aperture")
	record.ISO = etInt(m, "ISO")
	record.ExposureMode = etString(m, "ExposureProgram")
	record.ExposureBias = etFloat(m, "ExposureCompensation")
	record.MeteringMode = etString(m, "MeteringMode")
	record.WhiteBalance = etString(m, "WhiteBalance")
	record.FlashMode = etString(m, "Flash")
	record.ColorSpace = etString(m, "ColorSpace")
	record.Orientation = etInt(m, "Orientation")
	record.Artist = etString(m, "Artist")
	record.Copyright = etString(m, "Copyright")
	record.Software = etString(m, "Software")
	record.DateTimeOriginal = etString(m, "DateTimeOriginal")
	record.DateTimeDigitized = etString(m, "CreateDate")
	record.DateTimeModified = etString(m, "ModifyDate")

	if record.FlashMode != nil {
		fired := !strings.Contains(strings.ToLower(*record.FlashMode), "no flash") &&
			!strings.Contains(strings.ToLower(*record.FlashMode), "off")
		record.FlashUsed = &fired
	}

	if ss := etString(m, "ShutterSpeed"); ss != nil {
		record.ShutterSpeed = ss
	} else if et := etFloat(m, "ExposureTime"); et != nil {
		formatted := FormatShutterSpeed(*et)
		record.ShutterSpeed = &formatted
	}

	// exiftool emits signed decimal degrees when asked numerically
	record.GPSLatitude = etFloat(m, "GPSLatitude")
	record.GPSLongitude = etFloat(m, "GPSLongitude")
	record.GPSAltitude = etFloat(m, "GPSAltitude")
	record.GPSDirection = etFloat(m, "GPSImgDirection")
	normalizeGPS(record)
}

func etString(m exiftool.FileMetadata, key string) *string {
	v, err := m.GetString(key)
	if err != nil {
		return nil
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func etFloat(m exiftool.FileMetadata, key string) *float64 {
	v, err := m.GetFloat(key)
	if err != nil {
		return nil
	}
	return &v
}

func etInt(m exiftool.FileMetadata, key string) *int {
	v, err := m.GetInt(key)
	if err != nil {
		return nil
	}
	i := int(v)
	return &i
}

// normalizeGPS drops obviously invalid coordinates so downstream lookups
// never see (0,0) placeholders or out-of-range values.
func normalizeGPS(record *models.ImageRecord) {
	if record.GPSLatitude == nil || record.GPSLongitude == nil {
		return
	}
	lat, lon := *record.GPSLatitude, *record.GPSLongitude
	if lat == 0 && lon == 0 {
		record.GPSLatitude = nil
		record.GPSLongitude = nil
		return
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		record.GPSLatitude = nil
		record.GPSLongitude = nil
	}
}
