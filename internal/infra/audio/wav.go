package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Canonical waveform produced by the normalizer.
const (
	CanonicalChannels      = 1
	CanonicalBitsPerSample = 16
	DefaultSampleRate      = 16000

	pcmFormat = 1
)

// WAVHeader is the 44-byte header written by EncodeWAV.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// Format describes the fmt chunk of a WAV file.
type Format struct {
	AudioFormat   uint16 `json:"audio_format"`
	Channels      uint16 `json:"channels"`
	SampleRate    uint32 `json:"sample_rate"`
	BitsPerSample uint16 `json:"bits_per_sample"`
}

// IsCanonical reports whether f is mono 16-bit PCM at sampleRate.
func (f Format) IsCanonical(sampleRate int) bool {
	return f.AudioFormat == pcmFormat &&
		f.Channels == CanonicalChannels &&
		f.BitsPerSample == CanonicalBitsPerSample &&
		int(f.SampleRate) == sampleRate
}

// EncodeWAV encodes mono PCM-16 samples into WAV format.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	numChannels := uint16(CanonicalChannels)
	bitsPerSample := uint16(CanonicalBitsPerSample)
	dataSize := uint32(len(samples) * 2)

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   pcmFormat,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseWAV walks the RIFF chunks of data and returns the fmt description and
// the raw bytes of the data chunk. Unknown chunks (LIST, fact, ...) are skipped.
func ParseWAV(data []byte) (Format, []byte, error) {
	var f Format
	if len(data) < 12 {
		return f, nil, fmt.Errorf("WAV data too short: need at least 12 bytes, got %d", len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return f, nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		return f, nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	var (
		haveFmt bool
		pcm     []byte
	)
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		end := body + size
		if size < 0 || end > len(data) {
			// tolerate a truncated data chunk written by streaming encoders
			if id == "data" {
				end = len(data)
			} else {
				return f, nil, fmt.Errorf("invalid WAV file: chunk %q overruns file", id)
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return f, nil, fmt.Errorf("invalid WAV file: fmt chunk too short (%d bytes)", size)
			}
			f.AudioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			f.Channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			f.SampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			f.BitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			pcm = data[body:end]
		}
		if haveFmt && pcm != nil {
			break
		}

		// chunks are word aligned
		off = end + (size & 1)
	}

	if !haveFmt {
		return f, nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	if pcm == nil {
		return f, nil, fmt.Errorf("invalid WAV file: missing data chunk")
	}
	return f, pcm, nil
}

// DecodeWAV decodes a canonical (mono, 16-bit PCM) WAV file back to samples.
func DecodeWAV(data []byte) ([]int16, int, error) {
	f, pcm, err := ParseWAV(data)
	if err != nil {
		return nil, 0, err
	}
	if f.AudioFormat != pcmFormat {
		return nil, 0, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", f.AudioFormat)
	}
	if f.BitsPerSample != CanonicalBitsPerSample {
		return nil, 0, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", f.BitsPerSample)
	}
	if f.Channels != CanonicalChannels {
		return nil, 0, fmt.Errorf("unsupported channel count: %d (only mono is supported)", f.Channels)
	}
	samples := PCMToSamples(pcm)
	if len(samples) == 0 {
		return nil, 0, fmt.Errorf("no audio data found")
	}
	return samples, int(f.SampleRate), nil
}

// PCMToSamples converts little-endian s16 bytes to samples. A trailing odd
// byte is dropped.
func PCMToSamples(pcm []byte) []int16 {
	n := len(pcm) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return samples
}

// Duration returns the length of a canonical WAV in seconds.
func Duration(samples []int16, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(samples)) / float64(sampleRate)
}
