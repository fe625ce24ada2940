package models

import (
	"math"
	"strings"
)

// Sync states describe the agreement between a catalog record and any
// sidecar written for it. Fresh records start UNSYNCED; the XMP writer
// promotes them to PERFECT_SYNC; later edits demote to DIRTY.
const (
	SyncStateUnsynced    = "UNSYNCED"
	SyncStatePerfectSync = "PERFECT_SYNC"
	SyncStateDirty       = "DIRTY"
	SyncStateError       = "ERROR"
)

// Adobe color label values. Anything else is rejected by SetColorLabel.
var ColorLabels = []string{"Red", "Yellow", "Green", "Blue", "Purple"}

// ImageRecord is one enriched catalog entry per processed file.
// It corresponds to the 'image_records' table.
type ImageRecord struct {
	Filename string  `gorm:"primaryKey" json:"filename"`
	Filepath string  `gorm:"not null" json:"filepath"` // absolute
	FileHash *string `gorm:"" json:"file_hash,omitempty"`
	FileSize *int64  `gorm:"" json:"file_size,omitempty"`
	Format   string  `gorm:"" json:"format"`
	IsRaw    bool    `gorm:"not null;default:false" json:"is_raw"`

	Width           *int     `gorm:"" json:"width,omitempty"`
	Height          *int     `gorm:"" json:"height,omitempty"`
	AspectRatio     *float64 `gorm:"" json:"aspect_ratio,omitempty"`
	Megapixels      *float64 `gorm:"" json:"megapixels,omitempty"`
	CameraMake      *string  `gorm:"" json:"camera_make,omitempty"`
	CameraModel     *string  `gorm:"" json:"camera_model,omitempty"`
	LensModel       *string  `gorm:"" json:"lens_model,omitempty"`
	FocalLength     *float64 `gorm:"" json:"focal_length,omitempty"`
	FocalLength35mm *int     `gorm:"column:focal_length_35mm" json:"focal_length_35mm,omitempty"`
	Aperture        *float64 `gorm:"" json:"aperture,omitempty"`
	ShutterSpeed    *string  `gorm:"" json:"shutter_speed,omitempty"`
	ISO             *int     `gorm:"" json:"iso,omitempty"`
	ExposureMode    *string  `gorm:"" json:"exposure_mode,omitempty"`
	ExposureBias    *float64 `gorm:"" json:"exposure_bias,omitempty"`
	MeteringMode    *string  `gorm:"" json:"metering_mode,omitempty"`
	WhiteBalance    *string  `gorm:"" json:"white_balance,omitempty"`
	FlashUsed       *bool    `gorm:"" json:"flash_used,omitempty"`
	FlashMode       *string  `gorm:"" json:"flash_mode,omitempty"`
	ColorSpace      *string  `gorm:"" json:"color_space,omitempty"`
	Orientation     *int     `gorm:"" json:"orientation,omitempty"`

	DateTimeOriginal  *string `gorm:"" json:"datetime_original,omitempty"`
	DateTimeDigitized *string `gorm:"" json:"datetime_digitized,omitempty"`
	DateTimeModified  *string `gorm:"" json:"datetime_modified,omitempty"`

	GPSLatitude  *float64 `gorm:"" json:"gps_latitude,omitempty"`
	GPSLongitude *float64 `gorm:"" json:"gps_longitude,omitempty"`
	GPSAltitude  *float64 `gorm:"" json:"gps_altitude,omitempty"`
	GPSDirection *float64 `gorm:"" json:"gps_direction,omitempty"`
	GeoHierarchy *string  `gorm:"" json:"geo_hierarchy,omitempty"` // pipe-joined, "Geo|..." rooted

	Artist    *string `gorm:"" json:"artist,omitempty"`
	Copyright *string `gorm:"" json:"copyright,omitempty"`
	Software  *string `gorm:"" json:"software,omitempty"`

	Title       *string `gorm:"" json:"title,omitempty"`
	Description *string `gorm:"" json:"description,omitempty"`
	Rating      *int    `gorm:"" json:"rating,omitempty"` // 1..5
	ColorLabel  string  `gorm:"" json:"color_label"`
	TagsJoined  string  `gorm:"column:tags" json:"tags"` // "|"-joined, ordered, case-insensitively unique

	ClipEmbedding   []byte   `gorm:"column:clip_embedding" json:"-"` // float32 LE BLOB
	Dinov2Embedding []byte   `gorm:"column:dinov2_embedding" json:"-"`
	PerceptualHash  *string  `gorm:"column:phash" json:"phash,omitempty"`
	AestheticScore  *float64 `gorm:"" json:"aesthetic_score,omitempty"` // [0,10]
	TechnicalScore  *float64 `gorm:"" json:"technical_score,omitempty"` // [0,100]
	TaxonomyJoined  *string  `gorm:"column:bioclip_taxonomy" json:"bioclip_taxonomy,omitempty"`

	EmbeddingGenerated bool `gorm:"not null;default:false" json:"embedding_generated"`
	LLMGenerated       bool `gorm:"not null;default:false;column:llm_generated" json:"llm_generated"`

	ProcessedDate  *int64   `gorm:"" json:"processed_date,omitempty"`  // Unix timestamp
	ProcessingTime *float64 `gorm:"" json:"processing_time,omitempty"` // seconds
	AppVersion     string   `gorm:"" json:"app_version"`
	SyncState      string   `gorm:"not null;default:UNSYNCED" json:"sync_state"`
	ProcessError   *string  `gorm:"" json:"process_error,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (ImageRecord) TableName() string {
	return "image_records"
}

// Tags splits the stored joined form back into the ordered tag list.
func (r *ImageRecord) Tags() []string {
	if r.TagsJoined == "" {
		return nil
	}
	return strings.Split(r.TagsJoined, "|")
}

// SetTags stores the list, deduplicating case-insensitively while keeping
// insertion order.
func (r *ImageRecord) SetTags(tags []string) {
	r.TagsJoined = strings.Join(DedupeTags(tags), "|")
}

// DedupeTags removes case-insensitive duplicates, preserving first-seen
// order. Empty strings are dropped.
func DedupeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// HasTag reports whether tag is already present, case-insensitively.
func (r *ImageRecord) HasTag(tag string) bool {
	key := strings.ToLower(tag)
	for _, t := range r.Tags() {
		if strings.ToLower(t) == key {
			return true
		}
	}
	return false
}

// SetColorLabel assigns one of the five Adobe labels; anything else clears
// the label.
func (r *ImageRecord) SetColorLabel(label string) {
	for _, l := range ColorLabels {
		if label == l {
			r.ColorLabel = label
			return
		}
	}
	r.ColorLabel = ""
}

// GetClipEmbedding converts the stored BLOB back to []float32.
func (r *ImageRecord) GetClipEmbedding() []float32 {
	return embeddingFromBlob(r.ClipEmbedding)
}

// SetClipEmbedding stores the vector as a little-endian float32 BLOB.
func (r *ImageRecord) SetClipEmbedding(embedding []float32) {
	r.ClipEmbedding = embeddingToBlob(embedding)
}

// GetDinov2Embedding converts the stored BLOB back to []float32.
func (r *ImageRecord) GetDinov2Embedding() []float32 {
	return embeddingFromBlob(r.Dinov2Embedding)
}

// SetDinov2Embedding stores the vector as a little-endian float32 BLOB.
func (r *ImageRecord) SetDinov2Embedding(embedding []float32) {
	r.Dinov2Embedding = embeddingToBlob(embedding)
}

func embeddingFromBlob(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	embedding := make([]float32, len(data)/4)
	for i := 0; i < len(embedding); i++ {
		offset := i * 4
		bits := uint32(data[offset]) |
			uint32(data[offset+1])<<8 |
			uint32(data[offset+2])<<16 |
			uint32(data[offset+3])<<24
		embedding[i] = math.Float32frombits(bits)
	}
	return embedding
}

func embeddingToBlob(embedding []float32) []byte {
	if len(embedding) == 0 {
		return nil
	}
	data := make([]byte, len(embedding)*4)
	for i, val := range embedding {
		offset := i * 4
		bits := math.Float32bits(val)
		data[offset] = byte(bits)
		data[offset+1] = byte(bits >> 8)
		data[offset+2] = byte(bits >> 16)
		data[offset+3] = byte(bits >> 24)
	}
	return data
}
