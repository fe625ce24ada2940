package inference

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// loadNet reads an ONNX network from dir, trying the given filenames in
// order, and prefers the CUDA backend when the build supports it. Returns
// an empty Mat-net and false when no file loads.
func loadNet(dir string, filenames ...string) (gocv.Net, bool) {
	for _, name := range filenames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		net := gocv.ReadNet(path, "")
		if net.Empty() {
			continue
		}
		if err := net.SetPreferableBackend(gocv.NetBackendCUDA); err == nil {
			if err := net.SetPreferableTarget(gocv.NetTargetCUDA); err != nil {
				net.SetPreferableBackend(gocv.NetBackendDefault)
				net.SetPreferableTarget(gocv.NetTargetCPU)
			}
		} else {
			net.SetPreferableBackend(gocv.NetBackendDefault)
			net.SetPreferableTarget(gocv.NetTargetCPU)
		}
		return net, true
	}
	return gocv.Net{}, false
}

// makeBlob builds an NCHW float32 input blob from the image: center-crop
// cover to size x size, scale to [0,1], then per-channel (x-mean)/std.
func makeBlob(img image.Image, size int, mean, std [3]float32, filter imaging.ResampleFilter) (gocv.Mat, error) {
	square := imaging.Fill(img, size, size, imaging.Center, filter)
	if square == nil {
		return gocv.Mat{}, fmt.Errorf("failed to square input to %d", size)
	}

	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		row := square.Pix[y*square.Stride:]
		for x := 0; x < size; x++ {
			o := x * 4
			i := y*size + x
			data[i] = (float32(row[o])/255.0 - mean[0]) / std[0]
			data[plane+i] = (float32(row[o+1])/255.0 - mean[1]) / std[1]
			data[2*plane+i] = (float32(row[o+2])/255.0 - mean[2]) / std[2]
		}
	}

	raw := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	blob, err := gocv.NewMatWithSizesFromBytes([]int{1, 3, size, size}, gocv.MatTypeCV32F, raw)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to build input blob: %w", err)
	}
	return blob, nil
}

// matToFloats flattens a network output Mat into a float32 slice.
func matToFloats(m gocv.Mat) []float32 {
	flat := m.Reshape(1, 1)
	defer flat.Close()
	total := flat.Cols()
	out := make([]float32, total)
	for i := 0; i < total; i++ {
		out[i] = flat.GetFloatAt(0, i)
	}
	return out
}

// normalizeEmbedding L2-normalizes in place and rejects non-finite vectors.
// Any NaN or Inf, or a zero norm, invalidates the whole embedding.
func normalizeEmbedding(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	var sum float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite value in embedding")
		}
		sum += f * f
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("degenerate embedding norm")
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite value after normalization")
		}
	}
	return v, nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
