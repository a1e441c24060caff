package vector

// InnerProduct scores two embeddings. Embeddings are unit length, so this is their cosine
// similarity. Vectors of different or zero length score 0.
func InnerProduct(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var sum float64
	for i, x := range a {
		sum += float64(x) * float64(b[i])
	}
	return sum
}
