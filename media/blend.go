package media

import "fmt"

// BlendMode selects a compositing operation.
type BlendMode uint8

const (
	BlendNormal   BlendMode = iota // source-over (standard alpha blending)
	BlendAdd                       // additive / lighter
	BlendMultiply                  // multiply (source * destination; only darkens)
	BlendScreen                    // screen (1 - (1-src)*(1-dst); only brightens)
	BlendErase                     // destination-out (punch transparent holes)
	BlendMask                      // clip destination to source alpha
	BlendBelow                     // destination-over (draw behind existing content)
	BlendNone                      // opaque copy (skip blending)
)

var blendNames = [...]string{"normal", "add", "multiply", "screen", "erase", "mask", "below", "none"}

func (b BlendMode) String() string {
	if int(b) < len(blendNames) {
		return blendNames[b]
	}
	return fmt.Sprintf("BlendMode(%d)", b)
}

func (b BlendMode) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *BlendMode) UnmarshalText(text []byte) error {
	for i, n := range blendNames {
		if n == string(text) {
			*b = BlendMode(i)
			return nil
		}
	}
	return fmt.Errorf("media: unknown blend mode %q", text)
}
