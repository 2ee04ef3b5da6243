package metadata

import "github.com/gogpu/gputypes"

/** @brief What happens to an attachment at the start and end of a render pass. */
type AttachmentOps struct {
	Load       gputypes.LoadOp
	Store      gputypes.StoreOp
	ClearValue gputypes.Color
}

// ClearOps clears to color and stores the result.
func ClearOps(color gputypes.Color) AttachmentOps {
	return AttachmentOps{
		Load:       gputypes.LoadOpClear,
		Store:      gputypes.StoreOpStore,
		ClearValue: color,
	}
}

// LoadOps keeps the previous content and stores the result.
func LoadOps() AttachmentOps {
	return AttachmentOps{
		Load:  gputypes.LoadOpLoad,
		Store: gputypes.StoreOpStore,
	}
}

/** @brief A color attachment resolved to a concrete view at execution time. */
type RenderPassColorAttachment struct {
	View *TextureView
	Ops  AttachmentOps
}

/** @brief A depth attachment resolved to a concrete view at execution time. */
type RenderPassDepthAttachment struct {
	View            *TextureView
	DepthLoad       gputypes.LoadOp
	DepthStore      gputypes.StoreOp
	DepthClearValue float32
}

/**
 * @brief Everything the backend needs to begin a render pass.
 */
type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []RenderPassColorAttachment
	DepthAttachment  *RenderPassDepthAttachment
}

func (d *RenderPassDescriptor) IsEmpty() bool {
	return len(d.ColorAttachments) == 0 && d.DepthAttachment == nil
}
