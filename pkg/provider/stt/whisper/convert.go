package whisper

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// wavFormat describes the PCM layout extracted from a WAV header.
type wavFormat struct {
	sampleRate int
	channels   int
}

// decodeWAV extracts the raw 16-bit PCM payload and format from a RIFF/WAVE
// container. Only uncompressed PCM (format tag 1) with 16 bits per sample is
// supported; the audio conditioning stage produces exactly this layout.
func decodeWAV(raw []byte) ([]byte, wavFormat, error) {
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return nil, wavFormat{}, errors.New("not a RIFF/WAVE file")
	}

	var (
		format  wavFormat
		haveFmt bool
	)

	// Walk the chunk list. Chunks are 2-byte aligned.
	off := 12
	for off+8 <= len(raw) {
		id := string(raw[off : off+4])
		size := int(binary.LittleEndian.Uint32(raw[off+4 : off+8]))
		body := off + 8
		if body+size > len(raw) {
			return nil, wavFormat{}, fmt.Errorf("truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, wavFormat{}, errors.New("fmt chunk too short")
			}
			tag := binary.LittleEndian.Uint16(raw[body : body+2])
			if tag != 1 {
				return nil, wavFormat{}, fmt.Errorf("unsupported format tag %d (want PCM)", tag)
			}
			format.channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			format.sampleRate = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(raw[body+14 : body+16])
			if bits != 16 {
				return nil, wavFormat{}, fmt.Errorf("unsupported bit depth %d (want 16)", bits)
			}
			if format.channels <= 0 || format.sampleRate <= 0 {
				return nil, wavFormat{}, errors.New("invalid fmt chunk")
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, wavFormat{}, errors.New("data chunk before fmt chunk")
			}
			return raw[body : body+size], format, nil
		}

		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	return nil, wavFormat{}, errors.New("no data chunk found")
}

// pcmToFloat32 converts 16-bit signed little-endian PCM audio to float32
// samples normalised to the range [-1.0, 1.0]. The input length must be
// even (two bytes per sample); any trailing odd byte is silently ignored.
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}

// pcmToFloat32Mono down-mixes multi-channel 16-bit PCM to mono float32 by
// averaging all channels per frame. If channels is 1 this is equivalent to
// pcmToFloat32.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		return pcmToFloat32(pcm)
	}
	samplesPerChannel := len(pcm) / (2 * channels)
	mono := make([]float32, samplesPerChannel)
	for i := range samplesPerChannel {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// resampleLinear resamples mono float32 audio from srcRate to dstRate using
// linear interpolation. Quality is sufficient for speech recognition input;
// the conditioning stage normally emits the target rate already, so this is
// only hit for pass-through uploads.
func resampleLinear(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	outLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	out := make([]float32, outLen)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range outLen {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx+1 >= len(samples) {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}
