package lm

// Uniform returns a flat unigram Model assigning every token in
// [0,vocabSize) the same log-probability — a minimal fallback LM for
// driving the search package without a compiled n-gram model file (the
// training pipeline that produces a real one is a build-time collaborator
// out of scope here, spec §4.4). Mirrors this package's own Builder-based
// construction path, just with one flat context instead of a trained tree.
func Uniform(vocabSize int32, unigramLogProb float32) *Model {
	b := NewBuilder(1, vocabSize, unigramLogProb)
	for i := int32(0); i < vocabSize; i++ {
		b.AddEntry(nil, i, unigramLogProb)
	}
	return b.Build()
}
