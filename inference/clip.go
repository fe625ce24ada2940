package inference

import (
	"image"
	"log"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// OpenAI CLIP preprocessing constants, shared with the bio classifier.
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

const clipInputSize = 224

// ClipBackend runs the CLIP ViT-B/32 image encoder. The optional text
// encoder serves offline similarity tooling and is loaded lazily.
type ClipBackend struct {
	Enabled bool

	visual  gocv.Net
	textual gocv.Net
	hasText bool
}

// NewClipBackend loads the image encoder from dir. Missing model files
// leave the backend disabled.
func NewClipBackend(dir string) *ClipBackend {
	b := &ClipBackend{}
	net, ok := loadNet(dir, "visual.onnx", "clip_visual.onnx", "model.onnx")
	if !ok {
		log.Printf("inference: clip image encoder not found in %s, backend disabled", dir)
		return b
	}
	b.visual = net
	b.Enabled = true

	if text, ok := loadNet(dir, "textual.onnx", "clip_textual.onnx"); ok {
		b.textual = text
		b.hasText = true
	}
	return b
}

func (b *ClipBackend) Close() {
	if b.Enabled {
		b.visual.Close()
	}
	if b.hasText {
		b.textual.Close()
	}
}

// EncodeImage produces the L2-normalized semantic embedding.
func (b *ClipBackend) EncodeImage(img image.Image) ([]float32, error) {
	raw, err := b.encodeRaw(img)
	if err != nil {
		return nil, err
	}
	return normalizeEmbedding(raw)
}

// encodeRaw returns the un-normalized image feature. The aesthetic head
// consumes this directly.
func (b *ClipBackend) encodeRaw(img image.Image) ([]float32, error) {
	if !b.Enabled {
		return nil, ErrNotEnabled
	}
	blob, err := makeBlob(img, clipInputSize, clipMean, clipStd, imaging.Lanczos)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	b.visual.SetInput(blob, "")
	out := b.visual.Forward("")
	defer out.Close()

	return matToFloats(out), nil
}

// EncodeTokens runs the text branch over pre-tokenized ids (BPE ids padded
// to the context length). Returns the L2-normalized text embedding.
func (b *ClipBackend) EncodeTokens(ids []int32) ([]float32, error) {
	if !b.hasText {
		return nil, ErrNotEnabled
	}
	input := gocv.NewMatWithSizes([]int{1, len(ids)}, gocv.MatTypeCV32S)
	defer input.Close()
	for i, id := range ids {
		input.SetIntAt(0, i, id)
	}

	b.textual.SetInput(input, "")
	out := b.textual.Forward("")
	defer out.Close()

	return normalizeEmbedding(matToFloats(out))
}
