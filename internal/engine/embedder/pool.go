package embedder

import "math"

// meanPool averages token hidden states over unmasked positions, one vector
// per sample. hidden is flat [batch*seq*dim]; mask is flat [batch*seq].
// A sample with no unmasked tokens pools to the zero vector.
func meanPool(hidden []float32, mask []int64, batchSize, seqLen, dim int64) [][]float32 {
	out := make([][]float32, batchSize)
	for b := int64(0); b < batchSize; b++ {
		vec := make([]float32, dim)
		var n float32
		for s := int64(0); s < seqLen; s++ {
			if mask[b*seqLen+s] == 0 {
				continue
			}
			n++
			tok := hidden[(b*seqLen+s)*dim : (b*seqLen+s+1)*dim]
			for d, h := range tok {
				vec[d] += h
			}
		}
		if n > 0 {
			for d := range vec {
				vec[d] /= n
			}
		}
		out[b] = vec
	}
	return out
}

// l2Normalize scales vec to unit length in place. Zero vectors are left
// unchanged.
func l2Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
