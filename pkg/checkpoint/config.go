package checkpoint

import "slices"

// Hyperparameter keys, in the order they are written.
const (
	KeySegmentSize     = "segment_size"
	KeyNFFT            = "n_fft"
	KeyHopLength       = "hop_length"
	KeyEmbChannels     = "emb_channels"
	KeyInterChannels   = "inter_channels"
	KeyNLayers         = "n_layers"
	KeyUpsampleRates   = "upsample_rates"
	KeyUseSpectralNorm = "use_spectral_norm"
	KeyGinChannels     = "gin_channels"
	KeySpkEmbedDim     = "spk_embed_dim"
	KeySR              = "sr"
)

// DefaultSpkEmbedDim is the speaker embedding size of single-speaker models.
const DefaultSpkEmbedDim = 109

// ModelSampleRate is the sample rate the voras_beta network is built for.
// It is unrelated to the sample rate label stored at the top level.
const ModelSampleRate = 24000

// ModelConfig holds the architecture hyperparameters of a voras_beta model.
type ModelConfig struct {
	SegmentSize     int
	NFFT            int
	HopLength       int
	EmbChannels     int
	InterChannels   int
	NLayers         int
	UpsampleRates   []int
	UseSpectralNorm bool
	GinChannels     int
	SpkEmbedDim     int
	SR              int
}

// DefaultModelConfig returns the fixed voras_beta architecture. Only the
// speaker embedding size varies between trained models.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		SegmentSize:     150,
		NFFT:            960,
		HopLength:       240,
		EmbChannels:     768,
		InterChannels:   512,
		NLayers:         4,
		UpsampleRates:   []int{5, 3, 4, 4},
		UseSpectralNorm: false,
		GinChannels:     256,
		SpkEmbedDim:     DefaultSpkEmbedDim,
		SR:              ModelSampleRate,
	}
}

// Params returns the config as an ordered mapping.
func (c ModelConfig) Params() *Params {
	p := NewParams()
	p.Set(KeySegmentSize, c.SegmentSize)
	p.Set(KeyNFFT, c.NFFT)
	p.Set(KeyHopLength, c.HopLength)
	p.Set(KeyEmbChannels, c.EmbChannels)
	p.Set(KeyInterChannels, c.InterChannels)
	p.Set(KeyNLayers, c.NLayers)
	p.Set(KeyUpsampleRates, slices.Clone(c.UpsampleRates))
	p.Set(KeyUseSpectralNorm, c.UseSpectralNorm)
	p.Set(KeyGinChannels, c.GinChannels)
	p.Set(KeySpkEmbedDim, c.SpkEmbedDim)
	p.Set(KeySR, c.SR)
	return p
}

// modelConfigKeys lists the keys every checkpoint must carry.
var modelConfigKeys = []string{
	KeySegmentSize, KeyNFFT, KeyHopLength, KeyEmbChannels, KeyInterChannels,
	KeyNLayers, KeyUpsampleRates, KeyUseSpectralNorm, KeyGinChannels,
	KeySpkEmbedDim, KeySR,
}
