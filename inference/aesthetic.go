package inference

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
)

// AestheticBackend scores visual appeal on [0, 10] with a linear head over
// the raw CLIP image feature: score = 10 * sigmoid(w . f + b).
type AestheticBackend struct {
	clip *ClipBackend

	weights []float32
	bias    float32
	dir     string
}

// aestheticHead is the on-disk head weight file layout.
type aestheticHead struct {
	Weights []float32 `json:"weights"`
	Bias    float32   `json:"bias"`
}

// headInitSeed fixes the fallback initialization so scores are stable
// across runs of the same installation.
const headInitSeed = 41

func NewAestheticBackend(dir string, clip *ClipBackend) *AestheticBackend {
	b := &AestheticBackend{clip: clip, dir: dir}
	if clip == nil || !clip.Enabled {
		log.Println("inference: aesthetic head needs the clip backbone, backend disabled")
		return b
	}
	if err := b.loadHead(); err != nil {
		log.Printf("inference: aesthetic head weights unavailable (%v), using local initialization", err)
	}
	return b
}

// Enabled reports whether the head can score; it piggybacks on the clip
// backbone, so there is no network of its own to load.
func (b *AestheticBackend) Enabled() bool {
	return b.clip != nil && b.clip.Enabled
}

func (b *AestheticBackend) loadHead() error {
	raw, err := os.ReadFile(filepath.Join(b.dir, "head.json"))
	if err != nil {
		return err
	}
	var head aestheticHead
	if err := json.Unmarshal(raw, &head); err != nil {
		return fmt.Errorf("failed to parse aesthetic head: %w", err)
	}
	if len(head.Weights) == 0 {
		return fmt.Errorf("aesthetic head has no weights")
	}
	b.weights = head.Weights
	b.bias = head.Bias
	return nil
}

// initHead builds a seeded Xavier-uniform head for the given feature
// dimension. Scores from this head rank consistently within one catalog but
// carry no cross-installation meaning.
func (b *AestheticBackend) initHead(dim int) {
	rng := rand.New(rand.NewSource(headInitSeed))
	bound := float32(math.Sqrt(6.0 / float64(dim+1)))
	b.weights = make([]float32, dim)
	for i := range b.weights {
		b.weights[i] = (rng.Float32()*2 - 1) * bound
	}
	b.bias = 0
}

// Score rates the image on [0, 10], two decimals.
func (b *AestheticBackend) Score(img image.Image) (float64, error) {
	if !b.Enabled() {
		return 0, ErrNotEnabled
	}
	feature, err := b.clip.encodeRaw(img)
	if err != nil {
		return 0, err
	}
	if len(b.weights) == 0 {
		b.initHead(len(feature))
	}
	if len(b.weights) != len(feature) {
		return 0, fmt.Errorf("aesthetic head dim %d does not match feature dim %d", len(b.weights), len(feature))
	}

	var logit float64
	for i, w := range b.weights {
		logit += float64(w) * float64(feature[i])
	}
	logit += float64(b.bias)
	if math.IsNaN(logit) || math.IsInf(logit, 0) {
		return 0, fmt.Errorf("non-finite aesthetic logit")
	}
	return round2(10.0 * sigmoid(logit)), nil
}
