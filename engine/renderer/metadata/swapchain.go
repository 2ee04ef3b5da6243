package metadata

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

/** @brief Describes the swap chain image the frame renders into. */
type SwapChainDescriptor struct {
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
}

func (d SwapChainDescriptor) Validate() error {
	if d.Width == 0 || d.Height == 0 {
		return fmt.Errorf("swap chain size must be non-zero, got %dx%d", d.Width, d.Height)
	}
	if d.Format == gputypes.TextureFormatUndefined {
		return fmt.Errorf("swap chain format is undefined")
	}
	return nil
}

/**
 * @brief An image acquired from the swap chain for the current frame.
 * It is never pooled: releasing it presents it.
 */
type SwapChainImage struct {
	ID    uint64
	Label string
	Desc  SwapChainDescriptor
	/** @brief The view used as color attachment when rendering into the image. */
	View *TextureView
	/** @brief Invoked by Present, set by the backend. */
	OnPresent func(image *SwapChainImage) error

	presented bool
}

// Present hands the image back to the swap chain. Presenting twice is a no-op.
func (s *SwapChainImage) Present() error {
	if s.presented {
		return nil
	}
	s.presented = true
	if s.OnPresent != nil {
		return s.OnPresent(s)
	}
	return nil
}

func (s *SwapChainImage) Presented() bool {
	return s.presented
}
