package pipeline

import (
	"context"
	"fmt"
	"image"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/gfurlani/fotocatalogo/config"
	"github.com/gfurlani/fotocatalogo/geo"
	"github.com/gfurlani/fotocatalogo/inference"
	"github.com/gfurlani/fotocatalogo/llm"
	"github.com/gfurlani/fotocatalogo/media"
	"github.com/gfurlani/fotocatalogo/models"
)

// Decoder produces the shared thumbnail.
type Decoder interface {
	Decode(path string, targetSize int) *image.NRGBA
}

// MetadataExtractor fills the technical, geo and editorial fields.
type MetadataExtractor interface {
	Extract(rec *models.ImageRecord) error
}

// InferenceRunner is the model bank surface the orchestrator needs.
type InferenceRunner interface {
	Run(thumb image.Image, originalPath string, isRaw bool) inference.Results
	EnabledProfiles() []string
	HasVisionModels() bool
}

// FieldGenerator issues the concurrent title/description/tags calls.
// sourcePath, when non-empty, names an original file to send in place of
// the thumbnail.
type FieldGenerator interface {
	Generate(ctx context.Context, thumb *image.NRGBA, sourcePath string, pctx llm.Context, req llm.Request) llm.Fields
}

// Hasher computes the content hash of the original file.
type Hasher func(path string) (string, error)

// Pipeline turns one image path into a complete enriched record. It owns
// no persistence; the worker saves what comes back.
type Pipeline struct {
	Decoder   Decoder
	Extractor MetadataExtractor
	Bank      InferenceRunner
	Generator FieldGenerator
	Hash      Hasher

	Profiles   map[string]media.Profile
	LLMEnabled bool
	AutoImport config.AutoImport
	Version    string
}

// Process runs the per-image algorithm. existing is the prior catalog
// record for this filename, nil for new files; it drives the field-level
// preserve semantics. Only unrecoverable conditions (a non-RAW input that
// cannot be decoded while models are enabled) return an error.
func (p *Pipeline) Process(ctx context.Context, path string, existing *models.ImageRecord) (*models.ImageRecord, error) {
	start := time.Now()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rec := &models.ImageRecord{
		Filename: filepath.Base(path),
		Filepath: abs,
		IsRaw:    media.IsRawFile(path),
	}

	if err := p.Extractor.Extract(rec); err != nil {
		// partial record, keep going
		log.Printf("pipeline: %v for %s: %v", ErrMetadata, rec.Filename, err)
	}
	p.carryExisting(rec, existing)

	needThumb := p.Bank.HasVisionModels() || p.LLMEnabled
	maxSize := p.maxTargetSize()

	var thumb *image.NRGBA
	if needThumb && maxSize > 0 {
		thumb = p.Decoder.Decode(path, maxSize)
	}
	if thumb == nil && needThumb {
		if !rec.IsRaw {
			return nil, fmt.Errorf("%w: %s", ErrDecode, path)
		}
		// unreadable RAW preview: metadata-only record
		log.Printf("pipeline: no decodable preview for %s, metadata-only record", rec.Filename)
		p.finalize(rec, path, start)
		return rec, nil
	}

	results := p.Bank.Run(thumb, abs, rec.IsRaw)
	p.applyInference(rec, thumb, results)

	geoRes := p.enrichGeo(rec)
	pctx := p.assembleContext(rec, results, geoRes)

	if p.LLMEnabled && p.Generator != nil && thumb != nil {
		p.generateFields(ctx, rec, thumb, pctx)
	}

	if geoRes != nil && geoRes.Leaf != "" && !rec.HasTag(geoRes.Leaf) {
		rec.SetTags(append(rec.Tags(), geoRes.Leaf))
	}

	p.finalize(rec, path, start)
	return rec, nil
}

// carryExisting preserves prior editorial values that extraction did not
// supply, so a reprocess never erases user work.
func (p *Pipeline) carryExisting(rec *models.ImageRecord, existing *models.ImageRecord) {
	if existing == nil {
		return
	}
	if rec.Title == nil && existing.Title != nil {
		rec.Title = existing.Title
	}
	if rec.Description == nil && existing.Description != nil {
		rec.Description = existing.Description
	}
	if rec.Rating == nil && existing.Rating != nil {
		rec.Rating = existing.Rating
	}
	if rec.ColorLabel == "" {
		rec.ColorLabel = existing.ColorLabel
	}
	if rec.TagsJoined == "" {
		rec.TagsJoined = existing.TagsJoined
	}
}

// maxTargetSize composes the shared decode size over the enabled model
// profiles plus the llm consumer.
func (p *Pipeline) maxTargetSize() int {
	enabled := p.Bank.EnabledProfiles()
	if p.LLMEnabled {
		enabled = append(enabled, media.ProfileLLMVision)
	}
	return media.MaxTargetSize(p.Profiles, enabled)
}

func (p *Pipeline) applyInference(rec *models.ImageRecord, thumb *image.NRGBA, results inference.Results) {
	if results.ClipEmbedding != nil {
		rec.SetClipEmbedding(results.ClipEmbedding)
	}
	if results.Dinov2Embedding != nil {
		rec.SetDinov2Embedding(results.Dinov2Embedding)
	}
	rec.EmbeddingGenerated = results.ClipEmbedding != nil || results.Dinov2Embedding != nil
	rec.AestheticScore = results.AestheticScore
	rec.TechnicalScore = results.TechnicalScore

	if results.Taxonomy != nil {
		rec.SetTaxonomy(results.Taxonomy.Taxonomy)
	}

	if thumb != nil {
		if h, err := goimagehash.PerceptionHash(thumb); err != nil {
			log.Printf("pipeline: perceptual hash failed for %s: %v", rec.Filename, err)
		} else {
			phash := h.ToString()
			rec.PerceptualHash = &phash
		}
	}
}

// enrichGeo resolves GPS coordinates, stores the hierarchy and returns the
// lookup for context assembly. Coordinates over open water resolve to
// nothing and leave geo_hierarchy null.
func (p *Pipeline) enrichGeo(rec *models.ImageRecord) *geo.Result {
	if rec.GPSLatitude == nil || rec.GPSLongitude == nil {
		return nil
	}
	res := geo.Lookup(*rec.GPSLatitude, *rec.GPSLongitude)
	if res == nil {
		return nil
	}
	rec.GeoHierarchy = &res.Hierarchy
	return res
}

// assembleContext derives the advisory hints for generation from the
// classification and the geo lookup.
func (p *Pipeline) assembleContext(rec *models.ImageRecord, results inference.Results, geoRes *geo.Result) llm.Context {
	var pctx llm.Context
	if results.Taxonomy != nil {
		pctx.LatinName = results.Taxonomy.Taxonomy.LatinName()
		pctx.CommonName = results.Taxonomy.CommonName
		pctx.Confidence = results.Taxonomy.Confidence
		pctx.CategoryHint = llm.CategoryHint(results.Taxonomy.Taxonomy.Class())
	}
	if geoRes != nil {
		pctx.LocationHint = geoRes.LocationHint
	}
	return pctx
}

// generateFields issues the enabled generation modes, honoring the
// per-field overwrite flags, and merges the results into the record.
func (p *Pipeline) generateFields(ctx context.Context, rec *models.ImageRecord, thumb *image.NRGBA, pctx llm.Context) {
	existingTags := rec.Tags() // snapshot before the concurrent section

	// tags always generate when enabled; the merge decides what survives
	req := llm.Request{
		Title:       p.AutoImport.Title.Enabled && (p.AutoImport.Title.Overwrite || isEmpty(rec.Title)),
		Description: p.AutoImport.Description.Enabled && (p.AutoImport.Description.Overwrite || isEmpty(rec.Description)),
		Tags:        p.AutoImport.Tags.Enabled,
	}
	if !req.Title && !req.Description && !req.Tags {
		return
	}

	var sourcePath string
	if p.llmUseOriginal(rec) {
		sourcePath = rec.Filepath
	}
	fields := p.Generator.Generate(ctx, thumb, sourcePath, pctx, req)

	if fields.Title != nil {
		rec.Title = fields.Title
	}
	if fields.Description != nil {
		rec.Description = fields.Description
	}
	if len(fields.Tags) > 0 {
		if p.AutoImport.Tags.Overwrite {
			rec.SetTags(fields.Tags)
		} else {
			rec.SetTags(append(existingTags, fields.Tags...))
		}
	}
	rec.LLMGenerated = fields.Title != nil || fields.Description != nil || len(fields.Tags) > 0
}

// llmUseOriginal reports whether the original file can be sent to the
// vision model as-is, skipping the thumbnail re-encode. Only encoded
// formats that fit inside the llm target size qualify.
func (p *Pipeline) llmUseOriginal(rec *models.ImageRecord) bool {
	if rec.IsRaw || rec.Width == nil || rec.Height == nil {
		return false
	}
	switch strings.ToLower(rec.Format) {
	case "jpg", "jpeg", "png":
	default:
		return false
	}
	target := p.Profiles[media.ProfileLLMVision].TargetSize
	return target > 0 && *rec.Width <= target && *rec.Height <= target
}

// finalize stamps identity and bookkeeping on the way out.
func (p *Pipeline) finalize(rec *models.ImageRecord, path string, start time.Time) {
	if p.Hash != nil {
		if hash, err := p.Hash(path); err != nil {
			log.Printf("pipeline: %v for %s: %v", ErrHash, rec.Filename, err)
		} else {
			rec.FileHash = &hash
		}
	}
	now := time.Now().Unix()
	elapsed := time.Since(start).Seconds()
	rec.ProcessedDate = &now
	rec.ProcessingTime = &elapsed
	rec.SyncState = models.SyncStateUnsynced
	rec.AppVersion = p.Version
}

func isEmpty(s *string) bool {
	return s == nil || *s == ""
}
