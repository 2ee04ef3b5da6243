package metadata

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

/**
 * @brief Describes a GPU texture.
 */
type TextureDescriptor struct {
	/** @brief Width, height and depth (or array layers). */
	Size gputypes.Extent3D
	/** @brief Number of mip levels, at least 1. */
	MipLevelCount uint32
	/** @brief Number of samples per texel, at least 1. */
	SampleCount uint32
	Dimension   gputypes.TextureDimension
	Format      gputypes.TextureFormat
	Usage       gputypes.TextureUsage
}

// NewTexture2DDescriptor fills the common single-mip, single-sample case.
func NewTexture2DDescriptor(width, height uint32, format gputypes.TextureFormat, usage gputypes.TextureUsage) TextureDescriptor {
	return TextureDescriptor{
		Size:          gputypes.NewExtent2D(width, height),
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	}
}

func (d TextureDescriptor) Validate() error {
	if d.Size.Width == 0 || d.Size.Height == 0 || d.Size.DepthOrArrayLayers == 0 {
		return fmt.Errorf("texture size must be non-zero, got %dx%dx%d", d.Size.Width, d.Size.Height, d.Size.DepthOrArrayLayers)
	}
	if d.MipLevelCount == 0 {
		return fmt.Errorf("texture mip level count must be at least 1")
	}
	if d.SampleCount == 0 {
		return fmt.Errorf("texture sample count must be at least 1")
	}
	if d.Format == gputypes.TextureFormatUndefined {
		return fmt.Errorf("texture format is undefined")
	}
	return nil
}

/**
 * @brief A concrete GPU texture owned by the device backend.
 */
type Texture struct {
	/** @brief Backend assigned identifier. */
	ID    uint64
	Label string
	Desc  TextureDescriptor
	/** @brief Backend specific data. */
	InternalData interface{}
}

/**
 * @brief Describes a view over a texture. When the graph creates a view it
 * also creates the backing texture described by Texture.
 */
type TextureViewDescriptor struct {
	Texture         TextureDescriptor
	Format          gputypes.TextureFormat
	Dimension       gputypes.TextureViewDimension
	Aspect          gputypes.TextureAspect
	BaseMipLevel    uint32
	MipLevelCount   uint32
	BaseArrayLayer  uint32
	ArrayLayerCount uint32
}

// NewRenderTargetViewDescriptor describes a full 2D view over a render attachment texture.
func NewRenderTargetViewDescriptor(width, height uint32, format gputypes.TextureFormat) TextureViewDescriptor {
	return TextureViewDescriptor{
		Texture:         NewTexture2DDescriptor(width, height, format, gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageTextureBinding),
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	}
}

func (d TextureViewDescriptor) Validate() error {
	if err := d.Texture.Validate(); err != nil {
		return err
	}
	if d.BaseMipLevel+d.MipLevelCount > d.Texture.MipLevelCount {
		return fmt.Errorf("texture view mip range [%d, %d) exceeds %d levels", d.BaseMipLevel, d.BaseMipLevel+d.MipLevelCount, d.Texture.MipLevelCount)
	}
	if d.Format == gputypes.TextureFormatUndefined {
		return fmt.Errorf("texture view format is undefined")
	}
	return nil
}

/**
 * @brief A concrete view over a texture.
 */
type TextureView struct {
	ID    uint64
	Label string
	Desc  TextureViewDescriptor
	/** @brief The texture the view looks into. */
	Texture *Texture
	/** @brief Backend specific data. */
	InternalData interface{}
}
