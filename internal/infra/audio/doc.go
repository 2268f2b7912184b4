// Package audio converts uploaded recordings into the canonical waveform
// (mono, 16-bit PCM WAV) consumed by the transcription adapters.
package audio
