package inference

import (
	"fmt"
	"image"
	"log"

	"github.com/gfurlani/fotocatalogo/config"
	"github.com/gfurlani/fotocatalogo/media"
	"github.com/gfurlani/fotocatalogo/models"
)

// Results collects everything the bank produced for one image. Nil fields
// mean the backend was disabled or failed; a failed backend never blocks
// the others.
type Results struct {
	ClipEmbedding   []float32
	Dinov2Embedding []float32
	AestheticScore  *float64
	TechnicalScore  *float64
	Taxonomy        *Prediction
}

// Prediction is the best surviving bio-taxonomy classification.
type Prediction struct {
	Taxonomy   models.Taxonomy
	CommonName string
	Confidence float64
}

// Bank owns the model backends and runs them sequentially against the
// shared thumbnail. Sequential on purpose: the backends compete for one
// compute device.
type Bank struct {
	Clip      *ClipBackend
	Dinov2    *Dinov2Backend
	Aesthetic *AestheticBackend
	Technical *TechnicalBackend
	Bioclip   *BioclipBackend

	profiles map[string]media.Profile
}

// NewBank loads the enabled backends per config and initialization mode.
// A backend whose model files are missing loads disabled, it does not fail
// the startup.
func NewBank(cfg *config.Config, profiles map[string]media.Profile) *Bank {
	b := &Bank{profiles: profiles}

	if !cfg.Embedding.Enabled {
		log.Println("inference: embedding disabled, bank is empty")
		return b
	}

	mode := cfg.InitializationMode
	wantVision := mode == config.InitFull
	wantBioclip := mode == config.InitFull || mode == config.InitBioclipOnly

	if wantVision && cfg.Embedding.Models.Clip.Enabled {
		b.Clip = NewClipBackend(cfg.ModelPath("clip"))
	}
	if wantVision && cfg.Embedding.Models.Dinov2.Enabled {
		b.Dinov2 = NewDinov2Backend(cfg.ModelPath("dinov2"))
	}
	if wantVision && cfg.Embedding.Models.Aesthetic.Enabled {
		b.Aesthetic = NewAestheticBackend(cfg.ModelPath("aesthetic"), b.Clip)
	}
	if wantVision && cfg.Embedding.Models.Technical.Enabled {
		b.Technical = NewTechnicalBackend(cfg.ModelPath("technical"), profiles[media.ProfileTechnical])
	}
	if wantBioclip && cfg.Embedding.Models.Bioclip.Enabled {
		b.Bioclip = NewBioclipBackend(
			cfg.ModelPath("bioclip"),
			cfg.Embedding.Models.Bioclip.MaxTags,
			cfg.Embedding.Models.Bioclip.Threshold,
		)
	}
	return b
}

// Close releases every loaded network.
func (b *Bank) Close() {
	if b.Clip != nil {
		b.Clip.Close()
	}
	if b.Dinov2 != nil {
		b.Dinov2.Close()
	}
	if b.Bioclip != nil {
		b.Bioclip.Close()
	}
}

// EnabledProfiles lists the profile names of the loaded-and-enabled
// backends; the orchestrator sizes the shared decode from this.
func (b *Bank) EnabledProfiles() []string {
	var names []string
	if b.Clip != nil && b.Clip.Enabled {
		names = append(names, media.ProfileClip)
	}
	if b.Dinov2 != nil && b.Dinov2.Enabled {
		names = append(names, media.ProfileDinov2)
	}
	if b.Aesthetic != nil && b.Aesthetic.Enabled() {
		names = append(names, media.ProfileAesthetic)
	}
	if b.Technical != nil && b.Technical.Enabled {
		names = append(names, media.ProfileTechnical)
	}
	if b.Bioclip != nil && b.Bioclip.Enabled {
		names = append(names, media.ProfileBioclip)
	}
	return names
}

// HasVisionModels reports whether any thumbnail-consuming backend is loaded.
func (b *Bank) HasVisionModels() bool {
	for _, name := range b.EnabledProfiles() {
		if name != media.ProfileTechnical {
			return true
		}
	}
	return false
}

// Run executes every enabled backend. thumb is the shared decoded
// thumbnail; originalPath and isRaw drive the technical score, which reads
// the file itself and is skipped for RAW.
func (b *Bank) Run(thumb image.Image, originalPath string, isRaw bool) Results {
	var res Results

	if thumb != nil && b.Clip != nil && b.Clip.Enabled {
		input := media.Resample(thumb, b.profiles[media.ProfileClip])
		emb, err := b.Clip.EncodeImage(input)
		if err != nil {
			log.Printf("inference: clip failed for %s: %v", originalPath, err)
		} else {
			res.ClipEmbedding = emb
		}
	}

	if thumb != nil && b.Dinov2 != nil && b.Dinov2.Enabled {
		input := media.Resample(thumb, b.profiles[media.ProfileDinov2])
		emb, err := b.Dinov2.EncodeImage(input)
		if err != nil {
			log.Printf("inference: dinov2 failed for %s: %v", originalPath, err)
		} else {
			res.Dinov2Embedding = emb
		}
	}

	if thumb != nil && b.Aesthetic != nil && b.Aesthetic.Enabled() {
		input := media.Resample(thumb, b.profiles[media.ProfileAesthetic])
		score, err := b.Aesthetic.Score(input)
		if err != nil {
			log.Printf("inference: aesthetic failed for %s: %v", originalPath, err)
		} else {
			res.AestheticScore = &score
		}
	}

	if b.Technical != nil && b.Technical.Enabled && !isRaw {
		score, err := b.Technical.Score(originalPath)
		if err != nil {
			log.Printf("inference: technical failed for %s: %v", originalPath, err)
		} else {
			res.TechnicalScore = &score
		}
	}

	if thumb != nil && b.Bioclip != nil && b.Bioclip.Enabled {
		input := media.Resample(thumb, b.profiles[media.ProfileBioclip])
		preds, err := b.Bioclip.Classify(input)
		if err != nil {
			log.Printf("inference: bioclip failed for %s: %v", originalPath, err)
		} else if len(preds) > 0 {
			res.Taxonomy = &preds[0]
		}
	}

	return res
}

// ErrNotEnabled is returned by backends invoked while unloaded.
var ErrNotEnabled = fmt.Errorf("inference backend not enabled")
