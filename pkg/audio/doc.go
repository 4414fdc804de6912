// Package audio groups the audio sub-packages used by the relay client:
//
//   - wav: RIFF/WAVE decoding and encoding
//   - resampler: sample rate and channel conversion of 16-bit PCM
package audio
