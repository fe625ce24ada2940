package inference

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/gfurlani/fotocatalogo/media"
)

// TechnicalBackend measures perceived technical quality with a BRISQUE
// feature model: 36 natural-scene statistics over two scales, projected
// through a trained linear model. The published score is the inverted
// distortion, round(clamp(100 - brisque, 0, 100), 2).
//
// It always reads the original file. The shared thumbnail is resampled for
// semantics, which would contaminate the sharpness and noise statistics.
type TechnicalBackend struct {
	Enabled bool

	profile media.Profile
	model   technicalModel
}

// technicalModel is the score projection: min-max scale each feature to
// [-1, 1] with the training ranges, then a weighted sum plus bias.
type technicalModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Min     []float64 `json:"feature_min"`
	Max     []float64 `json:"feature_max"`
}

func NewTechnicalBackend(dir string, profile media.Profile) *TechnicalBackend {
	b := &TechnicalBackend{profile: profile, model: defaultTechnicalModel()}
	if raw, err := os.ReadFile(filepath.Join(dir, "coefficients.json")); err == nil {
		var m technicalModel
		if err := json.Unmarshal(raw, &m); err != nil {
			log.Printf("inference: bad technical coefficients in %s: %v", dir, err)
		} else if len(m.Weights) == brisqueFeatureCount &&
			len(m.Min) == brisqueFeatureCount && len(m.Max) == brisqueFeatureCount {
			b.model = m
		} else {
			log.Printf("inference: technical coefficients in %s have wrong arity, using builtins", dir)
		}
	}
	b.Enabled = true
	return b
}

const brisqueFeatureCount = 36

// Score reads the original image at path and returns the technical score.
// RAW files never reach this method; the bank skips them.
func (b *TechnicalBackend) Score(path string) (float64, error) {
	if !b.Enabled {
		return 0, ErrNotEnabled
	}

	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	if mat.Empty() {
		return 0, fmt.Errorf("failed to read %s for quality analysis", path)
	}
	defer mat.Close()

	// bound the working size; area interpolation keeps the noise statistics
	if b.profile.Mode == "optimized" && b.profile.MaxSize > 0 {
		w, h := mat.Cols(), mat.Rows()
		if longest := maxInt(w, h); longest > b.profile.MaxSize {
			scale := float64(b.profile.MaxSize) / float64(longest)
			resized := gocv.NewMat()
			gocv.Resize(mat, &resized, image.Pt(int(float64(w)*scale), int(float64(h)*scale)), 0, 0, gocv.InterpolationArea)
			mat.Close()
			mat = resized
		}
	}

	gray := grayPlane(mat)
	if gray == nil {
		return 0, fmt.Errorf("unusable grayscale plane for %s", path)
	}

	features := brisqueFeatures(gray)
	if len(features) != brisqueFeatureCount {
		return 0, fmt.Errorf("feature extraction produced %d of %d values", len(features), brisqueFeatureCount)
	}

	brisque := b.model.Bias
	for i, f := range features {
		span := b.model.Max[i] - b.model.Min[i]
		scaled := 0.0
		if span != 0 {
			scaled = -1 + 2*(f-b.model.Min[i])/span
		}
		brisque += b.model.Weights[i] * scaled
	}
	if math.IsNaN(brisque) || math.IsInf(brisque, 0) {
		return 0, fmt.Errorf("non-finite quality score for %s", path)
	}
	return round2(clamp(100.0-brisque, 0, 100)), nil
}

// plane is a dense grayscale raster in float64 intensity.
type plane struct {
	w, h int
	pix  []float64
}

func grayPlane(mat gocv.Mat) *plane {
	w, h := mat.Cols(), mat.Rows()
	if w < 16 || h < 16 {
		return nil
	}
	raw := mat.ToBytes()
	if len(raw) < w*h {
		return nil
	}
	p := &plane{w: w, h: h, pix: make([]float64, w*h)}
	for i := 0; i < w*h; i++ {
		p.pix[i] = float64(raw[i])
	}
	return p
}

// brisqueFeatures computes 18 statistics per scale over two scales.
func brisqueFeatures(p *plane) []float64 {
	features := make([]float64, 0, brisqueFeatureCount)
	for scale := 0; scale < 2; scale++ {
		mscn := mscnCoefficients(p)

		alpha, sigmaSq := ggdFit(mscn.pix)
		features = append(features, alpha, sigmaSq)

		for _, pr := range pairwiseProducts(mscn) {
			a, mean, lVar, rVar := aggdFit(pr)
			features = append(features, a, mean, lVar, rVar)
		}
		p = halfScale(p)
	}
	return features
}

// mscnCoefficients computes the mean-subtracted contrast-normalized field
// with a 7x7 Gaussian local window, sigma 7/6.
func mscnCoefficients(p *plane) *plane {
	mu := gaussianBlur(p)

	sq := &plane{w: p.w, h: p.h, pix: make([]float64, len(p.pix))}
	for i, v := range p.pix {
		sq.pix[i] = v * v
	}
	muSq := gaussianBlur(sq)

	out := &plane{w: p.w, h: p.h, pix: make([]float64, len(p.pix))}
	for i := range p.pix {
		variance := muSq.pix[i] - mu.pix[i]*mu.pix[i]
		sigma := math.Sqrt(math.Abs(variance))
		out.pix[i] = (p.pix[i] - mu.pix[i]) / (sigma + 1.0)
	}
	return out
}

// gaussianKernel7 is the normalized 7-tap window for sigma 7/6.
var gaussianKernel7 = func() [7]float64 {
	const sigma = 7.0 / 6.0
	var k [7]float64
	sum := 0.0
	for i := range k {
		x := float64(i - 3)
		k[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}()

// gaussianBlur runs the separable 7-tap kernel with reflected borders.
func gaussianBlur(p *plane) *plane {
	tmp := &plane{w: p.w, h: p.h, pix: make([]float64, len(p.pix))}
	for y := 0; y < p.h; y++ {
		row := p.pix[y*p.w : (y+1)*p.w]
		out := tmp.pix[y*p.w : (y+1)*p.w]
		for x := 0; x < p.w; x++ {
			acc := 0.0
			for t := -3; t <= 3; t++ {
				acc += gaussianKernel7[t+3] * row[reflect(x+t, p.w)]
			}
			out[x] = acc
		}
	}
	out := &plane{w: p.w, h: p.h, pix: make([]float64, len(p.pix))}
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			acc := 0.0
			for t := -3; t <= 3; t++ {
				acc += gaussianKernel7[t+3] * tmp.pix[reflect(y+t, p.h)*p.w+x]
			}
			out.pix[y*p.w+x] = acc
		}
	}
	return out
}

func reflect(i, n int) int {
	if i < 0 {
		return -i - 1
	}
	if i >= n {
		return 2*n - i - 1
	}
	return i
}

// pairwiseProducts yields the four shifted-neighbor products of the MSCN
// field: horizontal, vertical and the two diagonals.
func pairwiseProducts(m *plane) [4][]float64 {
	var out [4][]float64
	w, h := m.w, m.h

	horiz := make([]float64, 0, (w-1)*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w-1; x++ {
			horiz = append(horiz, m.pix[y*w+x]*m.pix[y*w+x+1])
		}
	}
	vert := make([]float64, 0, w*(h-1))
	for y := 0; y < h-1; y++ {
		for x := 0; x < w; x++ {
			vert = append(vert, m.pix[y*w+x]*m.pix[(y+1)*w+x])
		}
	}
	diag1 := make([]float64, 0, (w-1)*(h-1))
	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			diag1 = append(diag1, m.pix[y*w+x]*m.pix[(y+1)*w+x+1])
		}
	}
	diag2 := make([]float64, 0, (w-1)*(h-1))
	for y := 0; y < h-1; y++ {
		for x := 1; x < w; x++ {
			diag2 = append(diag2, m.pix[y*w+x]*m.pix[(y+1)*w+x-1])
		}
	}
	out[0], out[1], out[2], out[3] = horiz, vert, diag1, diag2
	return out
}

// halfScale is a 2x2 box reduction.
func halfScale(p *plane) *plane {
	w, h := p.w/2, p.h/2
	out := &plane{w: w, h: h, pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := p.pix[2*y*p.w+2*x] + p.pix[2*y*p.w+2*x+1] +
				p.pix[(2*y+1)*p.w+2*x] + p.pix[(2*y+1)*p.w+2*x+1]
			out.pix[y*w+x] = sum / 4.0
		}
	}
	return out
}

// ggdFit estimates the generalized Gaussian shape and variance of a
// zero-mean field by moment matching.
func ggdFit(v []float64) (alpha, sigmaSq float64) {
	var sumSq, sumAbs float64
	for _, x := range v {
		sumSq += x * x
		sumAbs += math.Abs(x)
	}
	n := float64(len(v))
	sigmaSq = sumSq / n
	meanAbs := sumAbs / n
	if meanAbs == 0 {
		return 10.0, sigmaSq
	}
	rho := sigmaSq / (meanAbs * meanAbs)

	alpha = solveGamma(func(g float64) float64 {
		return math.Gamma(1/g) * math.Gamma(3/g) / (math.Gamma(2/g) * math.Gamma(2/g))
	}, rho)
	return alpha, sigmaSq
}

// aggdFit estimates the asymmetric generalized Gaussian parameters of a
// pairwise-product field.
func aggdFit(v []float64) (alpha, mean, lVar, rVar float64) {
	var sumSqNeg, sumSqPos, sumAbs, sumSq float64
	var nNeg, nPos float64
	for _, x := range v {
		if x < 0 {
			sumSqNeg += x * x
			nNeg++
		} else if x > 0 {
			sumSqPos += x * x
			nPos++
		}
		sumAbs += math.Abs(x)
		sumSq += x * x
	}
	n := float64(len(v))
	if nNeg == 0 || nPos == 0 || sumAbs == 0 {
		return 10.0, 0, 0, 0
	}

	left := math.Sqrt(sumSqNeg / nNeg)
	right := math.Sqrt(sumSqPos / nPos)
	gammaHat := left / right
	rHat := (sumAbs / n) * (sumAbs / n) / (sumSq / n)
	rHatNorm := rHat * (gammaHat*gammaHat*gammaHat + 1) * (gammaHat + 1) /
		((gammaHat*gammaHat + 1) * (gammaHat*gammaHat + 1))

	alpha = solveGamma(func(g float64) float64 {
		t := math.Gamma(2 / g)
		return t * t / (math.Gamma(1/g) * math.Gamma(3/g))
	}, rHatNorm)

	scale := math.Sqrt(math.Gamma(1/alpha) / math.Gamma(3/alpha))
	betaL := left * scale
	betaR := right * scale
	mean = (betaR - betaL) * (math.Gamma(2/alpha) / math.Gamma(1/alpha))
	return alpha, mean, betaL * betaL, betaR * betaR
}

// solveGamma finds the shape parameter whose moment ratio best matches the
// target over a coarse-to-fine grid.
func solveGamma(ratio func(float64) float64, target float64) float64 {
	best, bestDiff := 2.0, math.Inf(1)
	for g := 0.2; g <= 10.0; g += 0.001 {
		diff := math.Abs(ratio(g) - target)
		if diff < bestDiff {
			bestDiff = diff
			best = g
		}
	}
	return best
}

// defaultTechnicalModel is the built-in projection used when no trained
// coefficients ship with the model assets.
func defaultTechnicalModel() technicalModel {
	weights := make([]float64, brisqueFeatureCount)
	min := make([]float64, brisqueFeatureCount)
	max := make([]float64, brisqueFeatureCount)
	for s := 0; s < 2; s++ {
		base := s * 18
		// GGD shape and variance of the MSCN field
		weights[base+0], min[base+0], max[base+0] = -14.0, 0.3, 3.2
		weights[base+1], min[base+1], max[base+1] = -9.5, 0.01, 1.2
		// four orientations, AGGD (shape, mean, left var, right var)
		for o := 0; o < 4; o++ {
			f := base + 2 + o*4
			weights[f+0], min[f+0], max[f+0] = -6.0, 0.2, 2.6
			weights[f+1], min[f+1], max[f+1] = 8.0, -0.25, 0.25
			weights[f+2], min[f+2], max[f+2] = -4.5, 0.0, 0.6
			weights[f+3], min[f+3], max[f+3] = -4.5, 0.0, 0.6
		}
	}
	return technicalModel{Weights: weights, Bias: 32.0, Min: min, Max: max}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
