package signal

// DefaultPixelStride samples every 10th pixel of a frame.
const DefaultPixelStride = 10

// BT.709 luma weights.
const (
	weightR = 0.2126
	weightG = 0.7152
	weightB = 0.0722
)

// Luminance returns the mean BT.709 luma of every stride-th pixel of an RGBA
// buffer (4 bytes per pixel, alpha ignored). An empty buffer yields 0.
func Luminance(pix []byte, stride int) float64 {
	if stride < 1 {
		stride = 1
	}
	step := stride * 4
	total := 0.0
	count := 0
	for i := 0; i+2 < len(pix); i += step {
		total += weightR*float64(pix[i]) + weightG*float64(pix[i+1]) + weightB*float64(pix[i+2])
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// Mean averages samples; it returns 0 for an empty slice.
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range samples {
		total += s
	}
	return total / float64(len(samples))
}
