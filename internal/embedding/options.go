package embedding

// ONNXOptions configures an ONNXEmbedder.
type ONNXOptions struct {
	ModelPath          string
	RuntimeLibraryPath string
	OutputName         string
	Dimensions         int
	MaxTokens          int
	CacheSize          int
	Tokenizer          Tokenizer
	Pooler             Pooler
}

func (o *ONNXOptions) applyDefaults() {
	if o.OutputName == "" {
		o.OutputName = "last_hidden_state"
	}
	if o.Dimensions <= 0 {
		o.Dimensions = 384
	}
	if o.MaxTokens < 2 {
		o.MaxTokens = 256
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 10000
	}
	if o.Tokenizer == nil {
		o.Tokenizer = &SimpleTokenizer{}
	}
	if o.Pooler == nil {
		o.Pooler = MeanPooler{}
	}
}
