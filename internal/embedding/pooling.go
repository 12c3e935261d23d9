package embedding

import "fmt"

// Pooler reduces per-token hidden states to one sentence vector. hidden is
// row-major [tokens][dims]; mask has one entry per token.
type Pooler interface {
	Pool(hidden []float32, mask []int64, dims int) []float32
	Name() string
}

// NewPooler returns the pooling strategy named by name ("mean" or "cls").
func NewPooler(name string) (Pooler, error) {
	switch name {
	case "", "mean":
		return MeanPooler{}, nil
	case "cls":
		return CLSPooler{}, nil
	default:
		return nil, fmt.Errorf("unknown pooling strategy: %s (supported: mean, cls)", name)
	}
}

// MeanPooler averages the hidden states of tokens whose attention mask is set.
type MeanPooler struct{}

// Name returns "mean".
func (MeanPooler) Name() string { return "mean" }

// Pool returns the masked mean over the token axis.
func (MeanPooler) Pool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	sums := make([]float64, dims)
	var count float64
	for tok, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[tok*dims : (tok+1)*dims]
		for j, v := range row {
			sums[j] += float64(v)
		}
		count++
	}
	if count == 0 {
		return out
	}
	for j := range out {
		out[j] = float32(sums[j] / count)
	}
	return out
}

// CLSPooler takes the hidden state of the first ([CLS]) token.
type CLSPooler struct{}

// Name returns "cls".
func (CLSPooler) Name() string { return "cls" }

// Pool returns a copy of the first token's hidden state.
func (CLSPooler) Pool(hidden []float32, _ []int64, dims int) []float32 {
	out := make([]float32, dims)
	copy(out, hidden[:dims])
	return out
}
