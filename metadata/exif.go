package metadata

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/gfurlani/fotocatalogo/models"
)

// extractWithGoexif fills the record from in-process EXIF parsing, used for
// every standard format.
func extractWithGoexif(record *models.ImageRecord) {
	file, err := os.Open(record.Filepath)
	if err != nil {
		log.Printf("metadata: failed to open %s: %v", record.Filepath, err)
		return
	}
	defer file.Close()

	if config, _, err := image.DecodeConfig(file); err == nil {
		w, h := config.Width, config.Height
		record.Width = &w
		record.Height = &h
	}

	if _, err := file.Seek(0, 0); err != nil {
		return
	}

	exifData, err := exif.Decode(file)
	if err != nil {
		// file might simply lack EXIF; dimensions alone are a valid result
		return
	}

	record.CameraMake = getString(exifData, exif.Make)
	record.CameraModel = getString(exifData, exif.Model)
	record.LensModel = getString(exifData, exif.LensModel)
	record.FocalLength = getRational(exifData, exif.FocalLength)
	record.Aperture = getRational(exifData, exif.FNumber)
	record.ISO = getInt(exifData, exif.ISOSpeedRatings)
	record.ExposureBias = getSignedRational(exifData, exif.ExposureBiasValue)
	record.Artist = getString(exifData, exif.Artist)
	record.Copyright = getString(exifData, exif.Copyright)
	record.Software = getString(exifData, exif.Software)
	record.DateTimeOriginal = getString(exifData, exif.DateTimeOriginal)
	record.DateTimeDigitized = getString(exifData, exif.DateTimeDigitized)
	record.DateTimeModified = getString(exifData, exif.DateTime)

	if v := getInt(exifData, exif.FocalLengthIn35mmFilm); v != nil && *v > 0 {
		record.FocalLength35mm = v
	}
	if v := getInt(exifData, exif.Orientation); v != nil {
		record.Orientation = v
	}
	if v := getInt(exifData, exif.ExposureProgram); v != nil {
		if name, ok := exposurePrograms[*v]; ok {
			record.ExposureMode = &name
		}
	}
	if v := getInt(exifData, exif.MeteringMode); v != nil {
		if name, ok := meteringModes[*v]; ok {
			record.MeteringMode = &name
		}
	}
	if v := getInt(exifData, exif.WhiteBalance); v != nil {
		name := "Auto"
		if *v == 1 {
			name = "Manual"
		}
		record.WhiteBalance = &name
	}
	if v := getInt(exifData, exif.ColorSpace); v != nil {
		name := "Uncalibrated"
		if *v == 1 {
			name = "sRGB"
		}
		record.ColorSpace = &name
	}
	if v := getInt(exifData, exif.Flash); v != nil {
		fired := *v&0x1 != 0
		record.FlashUsed = &fired
		if name, ok := flashModes[*v]; ok {
			record.FlashMode = &name
		}
	}

	if tag, err := exifData.Get(exif.ExposureTime); err == nil && tag != nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			formatted := FormatShutterSpeed(float64(num) / float64(den))
			record.ShutterSpeed = &formatted
		}
	}

	extractGoexifGPS(exifData, record)
}

func extractGoexifGPS(exifData *exif.Exif, record *models.ImageRecord) {
	lat, lon, err := exifData.LatLong()
	if err == nil {
		record.GPSLatitude = &lat
		record.GPSLongitude = &lon
	}

	if alt := getRational(exifData, exif.GPSAltitude); alt != nil {
		v := *alt
		if ref, err := exifData.Get(exif.GPSAltitudeRef); err == nil && ref != nil {
			if refVal, err := ref.Int(0); err == nil && refVal == 1 {
				v = -v // below sea level
			}
		}
		record.GPSAltitude = &v
	}
	record.GPSDirection = getRational(exifData, exif.GPSImgDirection)
	normalizeGPS(record)
}

// FormatShutterSpeed renders an exposure time in seconds as the canonical
// textual fraction: "1/250" below a second, "1.5s" at or above.
func FormatShutterSpeed(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	if seconds >= 1.0 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	den := int(1.0/seconds + 0.5)
	if den <= 1 {
		return "1.0s"
	}
	return fmt.Sprintf("1/%d", den)
}

// ClampRating normalizes a raw rating to the 1-5 range, nil when outside.
func ClampRating(rating int) *int {
	if rating < 1 || rating > 5 {
		return nil
	}
	return &rating
}

var exposurePrograms = map[int]string{
	0: "Not Defined",
	1: "Manual",
	2: "Program AE",
	3: "Aperture Priority",
	4: "Shutter Priority",
	5: "Creative",
	6: "Action",
	7: "Portrait",
	8: "Landscape",
}

var meteringModes = map[int]string{
	0:   "Unknown",
	1:   "Average",
	2:   "Center-weighted average",
	3:   "Spot",
	4:   "Multi-spot",
	5:   "Multi-segment",
	6:   "Partial",
	255: "Other",
}

var flashModes = map[int]string{
	0x0:  "No Flash",
	0x1:  "Fired",
	0x5:  "Fired, Return not detected",
	0x7:  "Fired, Return detected",
	0x8:  "On, Did not fire",
	0x9:  "On, Fired",
	0x10: "Off, Did not fire",
	0x18: "Auto, Did not fire",
	0x19: "Auto, Fired",
	0x20: "No flash function",
}

// helper to safely get and convert a rational tag
func getRational(exifData *exif.Exif, tagName exif.FieldName) *float64 {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		valInt, errInt := tag.Int(0)
		if errInt == nil {
			fVal := float64(valInt)
			return &fVal
		}
		return nil
	}
	val := float64(num) / float64(den)
	return &val
}

// getSignedRational keeps the sign, for exposure bias.
func getSignedRational(exifData *exif.Exif, tagName exif.FieldName) *float64 {
	return getRational(exifData, tagName)
}

// helper to safely get and convert an integer tag
func getInt(exifData *exif.Exif, tagName exif.FieldName) *int {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	val, err := tag.Int(0)
	if err != nil {
		return nil
	}
	return &val
}

// helper to safely get a string tag, trimming null terminators
func getString(exifData *exif.Exif, tagName exif.FieldName) *string {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	val := strings.TrimSpace(strings.Trim(tag.String(), "\"\x00"))
	if val == "" {
		return nil
	}
	return &val
}
