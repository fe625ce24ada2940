package media

import (
	"strings"

	"github.com/disintegration/imaging"

	"github.com/gfurlani/fotocatalogo/config"
)

// Consumer names in the optimization profile table. Each enabled model
// declares a decode target; the orchestrator decodes once at the maximum.
const (
	ProfileClip      = "clip"
	ProfileDinov2    = "dinov2"
	ProfileBioclip   = "bioclip"
	ProfileAesthetic = "aesthetic"
	ProfileTechnical = "technical"
	ProfileLLMVision = "llm_vision"
)

// Profile sizes and filters the decode for one model consumer.
type Profile struct {
	TargetSize int
	Resample   imaging.ResampleFilter
	Mode       string
	MaxSize    int
}

// builtinProfiles are the per-consumer defaults; config values override
// per key.
var builtinProfiles = map[string]Profile{
	ProfileClip:      {TargetSize: 224, Resample: imaging.Lanczos},
	ProfileDinov2:    {TargetSize: 518, Resample: imaging.Lanczos},
	ProfileBioclip:   {TargetSize: 224, Resample: imaging.Lanczos},
	ProfileAesthetic: {TargetSize: 224, Resample: imaging.Linear},
	ProfileTechnical: {TargetSize: 1024, Resample: imaging.Box, Mode: "optimized", MaxSize: 1024},
	ProfileLLMVision: {TargetSize: 512, Resample: imaging.Lanczos},
}

// ResampleFilter maps a config resampling name to an imaging filter.
// Unknown names fall back to Lanczos.
func ResampleFilter(name string) imaging.ResampleFilter {
	switch strings.ToLower(name) {
	case "bilinear", "linear":
		return imaging.Linear
	case "area", "box":
		return imaging.Box
	case "nearest":
		return imaging.NearestNeighbor
	case "bicubic", "catmullrom":
		return imaging.CatmullRom
	default:
		return imaging.Lanczos
	}
}

// LoadProfiles merges configured optimization profiles over the builtins.
func LoadProfiles(cfg *config.Config) map[string]Profile {
	profiles := make(map[string]Profile, len(builtinProfiles))
	for name, p := range builtinProfiles {
		profiles[name] = p
	}
	for name, cp := range cfg.ImageOptimization.Profiles {
		p, ok := profiles[name]
		if !ok {
			p = Profile{Resample: imaging.Lanczos}
		}
		if cp.TargetSize > 0 {
			p.TargetSize = cp.TargetSize
		}
		if cp.Resampling != "" {
			p.Resample = ResampleFilter(cp.Resampling)
		}
		if cp.Mode != "" {
			p.Mode = cp.Mode
		}
		if cp.MaxSize > 0 {
			p.MaxSize = cp.MaxSize
		}
		profiles[name] = p
	}
	return profiles
}

// MaxTargetSize composes the decode size over the enabled consumers. The
// technical profile never participates: BRISQUE reads the original path.
func MaxTargetSize(profiles map[string]Profile, enabled []string) int {
	max := 0
	for _, name := range enabled {
		if name == ProfileTechnical {
			continue
		}
		if p, ok := profiles[name]; ok && p.TargetSize > max {
			max = p.TargetSize
		}
	}
	return max
}
