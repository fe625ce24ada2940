package inference

import (
	"bufio"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"github.com/gfurlani/fotocatalogo/models"
)

// logit scale of the trained contrastive model, exp(learned temperature)
const bioclipLogitScale = 100.0

const bioclipInputSize = 224

// BioclipBackend classifies organisms against a precomputed species
// catalogue: the image embedding is matched to the catalogue's text
// embeddings and the similarity softmax gives per-species confidence.
type BioclipBackend struct {
	Enabled bool

	net       gocv.Net
	species   []speciesEntry
	textEmb   [][]float32 // one row per species, catalogue order
	maxTags   int
	threshold float64
}

type speciesEntry struct {
	Taxonomy   models.Taxonomy
	CommonName string
}

func NewBioclipBackend(dir string, maxTags int, threshold float64) *BioclipBackend {
	b := &BioclipBackend{maxTags: maxTags, threshold: threshold}
	if b.maxTags <= 0 {
		b.maxTags = 5
	}

	net, ok := loadNet(dir, "visual.onnx", "bioclip_visual.onnx", "model.onnx")
	if !ok {
		log.Printf("inference: bioclip image encoder not found in %s, backend disabled", dir)
		return b
	}

	species, err := loadSpecies(filepath.Join(dir, "species.txt"))
	if err != nil {
		log.Printf("inference: %v, bioclip disabled", err)
		net.Close()
		return b
	}
	emb, err := loadTextEmbeddings(filepath.Join(dir, "text_embeddings.json"), len(species))
	if err != nil {
		log.Printf("inference: %v, bioclip disabled", err)
		net.Close()
		return b
	}

	b.net = net
	b.species = species
	b.textEmb = emb
	b.Enabled = true
	log.Printf("inference: bioclip loaded with %d catalogue species", len(species))
	return b
}

func (b *BioclipBackend) Close() {
	if b.Enabled {
		b.net.Close()
	}
}

// Classify returns the species predictions above the confidence threshold,
// best first, at most maxTags entries. An empty slice is a valid answer:
// the image shows no catalogued organism.
func (b *BioclipBackend) Classify(img image.Image) ([]Prediction, error) {
	if !b.Enabled {
		return nil, ErrNotEnabled
	}

	blob, err := makeBlob(img, bioclipInputSize, clipMean, clipStd, imaging.Lanczos)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	b.net.SetInput(blob, "")
	out := b.net.Forward("")
	defer out.Close()

	feature, err := normalizeEmbedding(matToFloats(out))
	if err != nil {
		return nil, fmt.Errorf("bioclip image embedding: %w", err)
	}

	logits := make([]float64, len(b.species))
	for i, row := range b.textEmb {
		var dot float64
		for j, t := range row {
			dot += float64(feature[j]) * float64(t)
		}
		logits[i] = bioclipLogitScale * dot
	}
	probs := softmax(logits)

	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, c int) bool { return probs[idx[a]] > probs[idx[c]] })

	var preds []Prediction
	for _, i := range idx {
		if len(preds) >= b.maxTags || probs[i] < b.threshold {
			break
		}
		preds = append(preds, Prediction{
			Taxonomy:   b.species[i].Taxonomy,
			CommonName: b.species[i].CommonName,
			Confidence: probs[i],
		})
	}
	return preds, nil
}

func softmax(logits []float64) []float64 {
	maxL := math.Inf(-1)
	for _, l := range logits {
		if l > maxL {
			maxL = l
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - maxL)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// loadSpecies reads the catalogue: one line per species, eight
// semicolon-separated fields, kingdom through epithet then common name.
func loadSpecies(path string) ([]speciesEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open species catalogue: %w", err)
	}
	defer f.Close()

	var entries []speciesEntry
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, ";")
		if len(fields) != 8 {
			return nil, fmt.Errorf("species catalogue line %d has %d fields, want 8", line, len(fields))
		}
		var tax models.Taxonomy
		for i := 0; i < 7; i++ {
			tax[i] = strings.TrimSpace(fields[i])
		}
		entries = append(entries, speciesEntry{Taxonomy: tax, CommonName: strings.TrimSpace(fields[7])})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read species catalogue: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("species catalogue %s is empty", path)
	}
	return entries, nil
}

// textEmbeddingFile is the on-disk layout of the catalogue embeddings.
type textEmbeddingFile struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// loadTextEmbeddings reads the (species, dim) matrix. A matrix stored
// transposed, (dim, species), is detected by the species count and fixed.
func loadTextEmbeddings(path string, speciesCount int) ([][]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open text embeddings: %w", err)
	}
	var f textEmbeddingFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse text embeddings: %w", err)
	}
	if len(f.Shape) != 2 || f.Shape[0]*f.Shape[1] != len(f.Data) {
		return nil, fmt.Errorf("text embeddings shape %v does not match %d values", f.Shape, len(f.Data))
	}

	rows, cols := f.Shape[0], f.Shape[1]
	transposed := false
	if rows != speciesCount {
		if cols != speciesCount {
			return nil, fmt.Errorf("text embeddings shape %v does not cover %d species", f.Shape, speciesCount)
		}
		rows, cols = cols, rows
		transposed = true
	}

	out := make([][]float32, rows)
	for i := range out {
		row := make([]float32, cols)
		for j := 0; j < cols; j++ {
			if transposed {
				row[j] = f.Data[j*rows+i]
			} else {
				row[j] = f.Data[i*cols+j]
			}
		}
		normalized, err := normalizeEmbedding(row)
		if err != nil {
			return nil, fmt.Errorf("text embedding row %d: %w", i, err)
		}
		out[i] = normalized
	}
	return out, nil
}
