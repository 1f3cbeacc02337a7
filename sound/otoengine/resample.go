package otoengine

import "encoding/binary"

// pcm16ToSamples decodes interleaved 16-bit little-endian PCM bytes.
func pcm16ToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i : 2*i+2]))
	}
	return samples
}

// samplesToPCM16 encodes samples as interleaved 16-bit little-endian PCM.
func samplesToPCM16(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[2*i:2*i+2], uint16(s))
	}
	return data
}

// float32ToSamples converts normalized float samples to 16-bit PCM with
// clipping.
func float32ToSamples(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, f := range in {
		v := f * 32767
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

// resampleLinear converts interleaved samples from srcRate to dstRate
// using per-channel linear interpolation. It returns the input unchanged
// when the rates match.
func resampleLinear(src []int16, channels, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(src) == 0 || channels <= 0 {
		return src
	}

	srcFrames := len(src) / channels
	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(srcRate))
	if dstFrames == 0 {
		return nil
	}

	dst := make([]int16, dstFrames*channels)
	ratio := float64(srcFrames-1) / float64(dstFrames)
	if dstFrames == 1 {
		ratio = 0
	}

	for frame := 0; frame < dstFrames; frame++ {
		pos := float64(frame) * ratio
		left := int(pos)
		frac := pos - float64(left)
		right := left + 1
		if right >= srcFrames {
			right = srcFrames - 1
		}
		for ch := 0; ch < channels; ch++ {
			a := float64(src[left*channels+ch])
			b := float64(src[right*channels+ch])
			dst[frame*channels+ch] = int16(a + (b-a)*frac)
		}
	}
	return dst
}

// remixChannels converts interleaved samples between mono and stereo.
// Mono to stereo duplicates the channel; stereo to mono averages pairs.
// Other channel counts keep the first dstChannels channels of each frame.
func remixChannels(src []int16, srcChannels, dstChannels int) []int16 {
	if srcChannels == dstChannels || srcChannels <= 0 || dstChannels <= 0 {
		return src
	}

	frames := len(src) / srcChannels
	dst := make([]int16, frames*dstChannels)

	switch {
	case srcChannels == 1 && dstChannels == 2:
		for i := 0; i < frames; i++ {
			dst[2*i] = src[i]
			dst[2*i+1] = src[i]
		}
	case srcChannels == 2 && dstChannels == 1:
		for i := 0; i < frames; i++ {
			dst[i] = int16((int32(src[2*i]) + int32(src[2*i+1])) / 2)
		}
	default:
		for i := 0; i < frames; i++ {
			for ch := 0; ch < dstChannels; ch++ {
				from := ch
				if from >= srcChannels {
					from = srcChannels - 1
				}
				dst[i*dstChannels+ch] = src[i*srcChannels+from]
			}
		}
	}
	return dst
}
