package lm

import "sort"

// Quantizer is the 1-D non-uniform quantizer the build pipeline uses to
// cluster log-probabilities and back-off weights into a small codebook
// (spec §4.4 "quantization: log-probabilities and gammas are clustered
// into a small codebook (4/8/10 bits) ... trained per-model by a 1-D
// non-uniform quantizer (k-means-like boundary refinement)"). It is not
// wired into Builder/Model above — both work directly with float32 values
// — but the model file layout (spec §6) calls for quantized storage, so a
// loader reading such a blob uses this to decode indices back to floats.
type Quantizer struct {
	Codebook []float32 // centroid values, ascending
}

// TrainQuantizer runs Lloyd's algorithm (k-means in one dimension) over
// values to produce a codebook of 2^bits centroids, or len(values)
// centroids when there are fewer values than that.
func TrainQuantizer(values []float32, bits int) *Quantizer {
	k := 1 << bits
	if k > len(values) {
		k = len(values)
	}
	if k == 0 {
		return &Quantizer{}
	}

	sorted := append([]float32{}, values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	// Seed centroids evenly across the sorted range.
	centroids := make([]float32, k)
	for i := range centroids {
		pos := i * (len(sorted) - 1) / maxInt(k-1, 1)
		centroids[i] = sorted[pos]
	}

	for iter := 0; iter < 20; iter++ {
		sums := make([]float64, k)
		counts := make([]int, k)
		for _, v := range values {
			idx := nearest(centroids, v)
			sums[idx] += float64(v)
			counts[idx]++
		}
		moved := false
		for i := range centroids {
			if counts[i] == 0 {
				continue
			}
			next := float32(sums[i] / float64(counts[i]))
			if next != centroids[i] {
				moved = true
			}
			centroids[i] = next
		}
		if !moved {
			break
		}
	}

	sort.Slice(centroids, func(i, j int) bool { return centroids[i] < centroids[j] })
	return &Quantizer{Codebook: centroids}
}

func nearest(centroids []float32, v float32) int {
	best, bestDist := 0, absF32(centroids[0]-v)
	for i := 1; i < len(centroids); i++ {
		d := absF32(centroids[i] - v)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Encode returns the codebook index nearest v.
func (q *Quantizer) Encode(v float32) int {
	return nearest(q.Codebook, v)
}

// Decode returns the centroid value for index idx.
func (q *Quantizer) Decode(idx int) float32 {
	return q.Codebook[idx]
}
