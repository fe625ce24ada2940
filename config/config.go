package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Processing mode selector for the enrichment worker.
const (
	ModeNewOnly       = "new_only"
	ModeNewPlusErrors = "new_plus_errors"
	ModeReprocessAll  = "reprocess_all"
)

// Initialization modes restrict which model backends load at startup.
const (
	InitFull        = "full"
	InitLLMOnly     = "llm_only"
	InitBioclipOnly = "bioclip_only"
)

type Paths struct {
	Database string `mapstructure:"database"`
}

type GenerationOptions struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	TopK        int     `mapstructure:"top_k"`
	MinP        float64 `mapstructure:"min_p"`
	NumCtx      int     `mapstructure:"num_ctx"`
	NumBatch    int     `mapstructure:"num_batch"`
	KeepAlive   int     `mapstructure:"keep_alive"`
}

// AutoImportField is the per-field policy for LLM generated values.
type AutoImportField struct {
	Enabled   bool `mapstructure:"enabled"`
	Overwrite bool `mapstructure:"overwrite"`
	MaxTags   int  `mapstructure:"max_tags"`
	MaxWords  int  `mapstructure:"max_words"`
}

type AutoImport struct {
	Tags        AutoImportField `mapstructure:"tags"`
	Description AutoImportField `mapstructure:"description"`
	Title       AutoImportField `mapstructure:"title"`
}

type LLMVision struct {
	Enabled    bool              `mapstructure:"enabled"`
	Endpoint   string            `mapstructure:"endpoint"`
	Model      string            `mapstructure:"model"`
	TimeoutSec int               `mapstructure:"timeout"`
	Generation GenerationOptions `mapstructure:"generation"`
	AutoImport AutoImport        `mapstructure:"auto_import"`
}

type BioclipModel struct {
	Enabled   bool    `mapstructure:"enabled"`
	MaxTags   int     `mapstructure:"max_tags"`
	Threshold float64 `mapstructure:"threshold"`
}

type ModelToggle struct {
	Enabled bool `mapstructure:"enabled"`
}

type EmbeddingModels struct {
	Clip      ModelToggle  `mapstructure:"clip"`
	Dinov2    ModelToggle  `mapstructure:"dinov2"`
	Aesthetic ModelToggle  `mapstructure:"aesthetic"`
	Technical ModelToggle  `mapstructure:"technical"`
	Bioclip   BioclipModel `mapstructure:"bioclip"`
	LLMVision LLMVision    `mapstructure:"llm_vision"`
}

type Embedding struct {
	Enabled bool            `mapstructure:"enabled"`
	Models  EmbeddingModels `mapstructure:"models"`
}

type ImageProcessing struct {
	SupportedFormats []string `mapstructure:"supported_formats"`
}

// OptimizationProfile sizes the decode for one model consumer.
type OptimizationProfile struct {
	TargetSize int    `mapstructure:"target_size"`
	Resampling string `mapstructure:"resampling"`
	Mode       string `mapstructure:"mode"`
	MaxSize    int    `mapstructure:"max_size"`
}

type ImageOptimization struct {
	Profiles map[string]OptimizationProfile `mapstructure:"profiles"`
}

type ModelsRepository struct {
	HuggingfaceRepo string            `mapstructure:"huggingface_repo"`
	Models          map[string]string `mapstructure:"models"`
	ModelsDir       string            `mapstructure:"models_dir"`
}

type Config struct {
	Paths             Paths             `mapstructure:"paths"`
	Embedding         Embedding         `mapstructure:"embedding"`
	ImageProcessing   ImageProcessing   `mapstructure:"image_processing"`
	ImageOptimization ImageOptimization `mapstructure:"image_optimization"`
	ModelsRepository  ModelsRepository  `mapstructure:"models_repository"`

	ProcessingMode     string `mapstructure:"processing_mode"`
	InitializationMode string `mapstructure:"initialization_mode"`
	ListenAddr         string `mapstructure:"listen_addr"`
}

// LoadConfig reads the YAML config at configPath (or the default search
// locations when empty), applies defaults and FOTOCAT_ env overrides, and
// validates the result.
func LoadConfig(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("FOTOCAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// config file is optional; defaults plus env must be enough
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	absDB, err := filepath.Abs(cfg.Paths.Database)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve database path %q: %w", cfg.Paths.Database, err)
	}
	cfg.Paths.Database = absDB

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.database", "catalog.db")
	v.SetDefault("listen_addr", ":8321")
	v.SetDefault("processing_mode", ModeNewOnly)
	v.SetDefault("initialization_mode", InitFull)

	v.SetDefault("embedding.enabled", true)
	v.SetDefault("embedding.models.clip.enabled", true)
	v.SetDefault("embedding.models.dinov2.enabled", true)
	v.SetDefault("embedding.models.aesthetic.enabled", true)
	v.SetDefault("embedding.models.technical.enabled", true)
	v.SetDefault("embedding.models.bioclip.enabled", true)
	v.SetDefault("embedding.models.bioclip.max_tags", 5)
	v.SetDefault("embedding.models.bioclip.threshold", 0.1)

	v.SetDefault("embedding.models.llm_vision.enabled", false)
	v.SetDefault("embedding.models.llm_vision.endpoint", "http://localhost:11434")
	v.SetDefault("embedding.models.llm_vision.model", "qwen2.5vl:7b")
	v.SetDefault("embedding.models.llm_vision.timeout", 180)
	v.SetDefault("embedding.models.llm_vision.generation.temperature", 0.4)
	v.SetDefault("embedding.models.llm_vision.generation.top_p", 0.9)
	v.SetDefault("embedding.models.llm_vision.generation.top_k", 40)
	v.SetDefault("embedding.models.llm_vision.generation.min_p", 0.05)
	v.SetDefault("embedding.models.llm_vision.generation.num_ctx", 4096)
	v.SetDefault("embedding.models.llm_vision.generation.num_batch", 512)
	v.SetDefault("embedding.models.llm_vision.generation.keep_alive", -1)

	v.SetDefault("embedding.models.llm_vision.auto_import.tags.enabled", true)
	v.SetDefault("embedding.models.llm_vision.auto_import.tags.overwrite", false)
	v.SetDefault("embedding.models.llm_vision.auto_import.tags.max_tags", 10)
	v.SetDefault("embedding.models.llm_vision.auto_import.description.enabled", true)
	v.SetDefault("embedding.models.llm_vision.auto_import.description.overwrite", false)
	v.SetDefault("embedding.models.llm_vision.auto_import.description.max_words", 40)
	v.SetDefault("embedding.models.llm_vision.auto_import.title.enabled", true)
	v.SetDefault("embedding.models.llm_vision.auto_import.title.overwrite", false)
	v.SetDefault("embedding.models.llm_vision.auto_import.title.max_words", 8)

	v.SetDefault("image_processing.supported_formats", []string{
		"jpg", "jpeg", "png", "tif", "tiff", "bmp", "webp",
		"nef", "cr2", "cr3", "arw", "raf", "dng", "orf", "rw2",
	})

	v.SetDefault("image_optimization.profiles.clip.target_size", 224)
	v.SetDefault("image_optimization.profiles.clip.resampling", "lanczos")
	v.SetDefault("image_optimization.profiles.dinov2.target_size", 518)
	v.SetDefault("image_optimization.profiles.dinov2.resampling", "lanczos")
	v.SetDefault("image_optimization.profiles.bioclip.target_size", 224)
	v.SetDefault("image_optimization.profiles.bioclip.resampling", "lanczos")
	v.SetDefault("image_optimization.profiles.aesthetic.target_size", 224)
	v.SetDefault("image_optimization.profiles.aesthetic.resampling", "bilinear")
	v.SetDefault("image_optimization.profiles.technical.target_size", 1024)
	v.SetDefault("image_optimization.profiles.technical.resampling", "area")
	v.SetDefault("image_optimization.profiles.technical.mode", "optimized")
	v.SetDefault("image_optimization.profiles.technical.max_size", 1024)
	v.SetDefault("image_optimization.profiles.llm_vision.target_size", 512)
	v.SetDefault("image_optimization.profiles.llm_vision.resampling", "lanczos")

	v.SetDefault("models_repository.huggingface_repo", "")
	v.SetDefault("models_repository.models_dir", "./models")
	v.SetDefault("models_repository.models", map[string]string{})
}

func (c *Config) validate() error {
	switch c.ProcessingMode {
	case ModeNewOnly, ModeNewPlusErrors, ModeReprocessAll:
	default:
		return fmt.Errorf("invalid processing_mode %q", c.ProcessingMode)
	}
	switch c.InitializationMode {
	case InitFull, InitLLMOnly, InitBioclipOnly:
	default:
		return fmt.Errorf("invalid initialization_mode %q", c.InitializationMode)
	}
	if c.Paths.Database == "" {
		return fmt.Errorf("paths.database must be set")
	}
	if c.Embedding.Models.Bioclip.Threshold < 0 || c.Embedding.Models.Bioclip.Threshold > 1 {
		return fmt.Errorf("bioclip threshold %f out of [0,1]", c.Embedding.Models.Bioclip.Threshold)
	}
	return nil
}

// SupportedFormatSet returns the lowercase extension set with leading dots,
// e.g. ".jpg" -> true.
func (c *Config) SupportedFormatSet() map[string]bool {
	set := make(map[string]bool, len(c.ImageProcessing.SupportedFormats))
	for _, f := range c.ImageProcessing.SupportedFormats {
		f = strings.ToLower(strings.TrimPrefix(f, "."))
		if f != "" {
			set["."+f] = true
		}
	}
	return set
}

// ModelPath resolves a model's asset directory below models_dir using the
// per-model subfolder map; the model name itself is the fallback subfolder.
func (c *Config) ModelPath(name string) string {
	sub, ok := c.ModelsRepository.Models[name]
	if !ok || sub == "" {
		sub = name
	}
	return filepath.Join(c.ModelsRepository.ModelsDir, sub)
}
