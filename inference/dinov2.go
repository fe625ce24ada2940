package inference

import (
	"fmt"
	"image"
	"log"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// ImageNet preprocessing for the DINOv2 structural encoder.
var (
	dinov2Mean = [3]float32{0.485, 0.456, 0.406}
	dinov2Std  = [3]float32{0.229, 0.224, 0.225}
)

const dinov2InputSize = 518

// Dinov2Backend runs the DINOv2 ViT and keeps the CLS token of the last
// hidden state as the structural embedding.
type Dinov2Backend struct {
	Enabled bool

	net gocv.Net
}

func NewDinov2Backend(dir string) *Dinov2Backend {
	b := &Dinov2Backend{}
	net, ok := loadNet(dir, "model.onnx", "dinov2.onnx")
	if !ok {
		log.Printf("inference: dinov2 model not found in %s, backend disabled", dir)
		return b
	}
	b.net = net
	b.Enabled = true
	return b
}

func (b *Dinov2Backend) Close() {
	if b.Enabled {
		b.net.Close()
	}
}

// EncodeImage produces the L2-normalized structural embedding.
func (b *Dinov2Backend) EncodeImage(img image.Image) ([]float32, error) {
	if !b.Enabled {
		return nil, ErrNotEnabled
	}
	blob, err := makeBlob(img, dinov2InputSize, dinov2Mean, dinov2Std, imaging.Lanczos)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	b.net.SetInput(blob, "")
	out := b.net.Forward("")
	defer out.Close()

	// last_hidden_state is [1, tokens, dim]; the CLS token is row zero
	sizes := out.Size()
	if len(sizes) < 3 {
		return normalizeEmbedding(matToFloats(out))
	}
	dim := sizes[len(sizes)-1]
	flat := matToFloats(out)
	if len(flat) < dim {
		return nil, fmt.Errorf("dinov2 output too small: %d values, dim %d", len(flat), dim)
	}
	cls := make([]float32, dim)
	copy(cls, flat[:dim])
	return normalizeEmbedding(cls)
}
