// Package resampler converts 16-bit PCM between sample rates and between
// mono and stereo.
//
// Rate conversion uses the pure Go resampler from go-audio-resampling, so
// the package builds without cgo. Channel conversion averages or duplicates
// samples.
//
// Streaming use:
//
//	src := resampler.Format{SampleRate: 44100, Stereo: true}
//	dst := resampler.Format{SampleRate: 24000}
//	r, err := resampler.New(pcmReader, src, dst)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	io.Copy(out, r)
//
// For a whole clip already in memory, Resample does the same in one call.
package resampler
