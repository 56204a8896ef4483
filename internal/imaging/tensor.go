package imaging

import "fmt"

// Layout is the memory order of the float tensor handed to the classifier.
type Layout string

const (
	// LayoutNHWC is batch, height, width, channel (Keras/TensorFlow exports).
	LayoutNHWC Layout = "nhwc"
	// LayoutNCHW is batch, channel, height, width (PyTorch exports).
	LayoutNCHW Layout = "nchw"
)

// ParseLayout accepts "nhwc" or "nchw"; empty means NHWC.
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case "", LayoutNHWC:
		return LayoutNHWC, nil
	case LayoutNCHW:
		return LayoutNCHW, nil
	default:
		return "", fmt.Errorf("unknown tensor layout %q", s)
	}
}

// Tensor returns a single-item batch with every channel value divided by
// 255, so each element lies in [0, 1].
func (n *Normalized) Tensor(layout Layout) []float32 {
	pixels := n.Len()
	out := make([]float32, pixels*Channels)

	if layout == LayoutNCHW {
		for p := 0; p < pixels; p++ {
			for c := 0; c < Channels; c++ {
				out[c*pixels+p] = float32(n.Pix[p*Channels+c]) / 255.0
			}
		}
		return out
	}

	for i, v := range n.Pix {
		out[i] = float32(v) / 255.0
	}
	return out
}
