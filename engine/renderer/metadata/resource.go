package metadata

import (
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/core"
)

/** @brief The closed set of resource kinds a frame graph can schedule. */
type ResourceKind uint8

const (
	/** @brief Zero value, never a valid resource. */
	ResourceKindUnknown ResourceKind = iota
	/** @brief A linear GPU buffer (vertex, index, uniform, storage...). */
	ResourceKindBuffer
	/** @brief A GPU texture. */
	ResourceKindTexture
	/** @brief A view over a texture, usable as a render attachment. */
	ResourceKindTextureView
	/** @brief An image acquired from the swap chain, presented on release. */
	ResourceKindSwapChain
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindBuffer:
		return "buffer"
	case ResourceKindTexture:
		return "texture"
	case ResourceKindTextureView:
		return "texture_view"
	case ResourceKindSwapChain:
		return "swap_chain"
	default:
		return "unknown"
	}
}

/**
 * @brief Tagged sum of every resource descriptor. Only the field matching
 * Kind is meaningful. The struct is comparable so it can key the transient
 * resource pool directly.
 */
type Descriptor struct {
	Kind        ResourceKind
	Buffer      BufferDescriptor
	Texture     TextureDescriptor
	TextureView TextureViewDescriptor
	SwapChain   SwapChainDescriptor
}

func BufferDesc(d BufferDescriptor) Descriptor {
	return Descriptor{Kind: ResourceKindBuffer, Buffer: d}
}

func TextureDesc(d TextureDescriptor) Descriptor {
	return Descriptor{Kind: ResourceKindTexture, Texture: d}
}

func TextureViewDesc(d TextureViewDescriptor) Descriptor {
	return Descriptor{Kind: ResourceKindTextureView, TextureView: d}
}

func SwapChainDesc(d SwapChainDescriptor) Descriptor {
	return Descriptor{Kind: ResourceKindSwapChain, SwapChain: d}
}

func (d Descriptor) Validate() error {
	var err error
	switch d.Kind {
	case ResourceKindBuffer:
		err = d.Buffer.Validate()
	case ResourceKindTexture:
		err = d.Texture.Validate()
	case ResourceKindTextureView:
		err = d.TextureView.Validate()
	case ResourceKindSwapChain:
		err = d.SwapChain.Validate()
	default:
		err = fmt.Errorf("unknown resource kind %d", d.Kind)
	}
	if err != nil {
		return fmt.Errorf("%w: %s", core.ErrInvalidDescriptor, err.Error())
	}
	return nil
}

func (d Descriptor) String() string {
	switch d.Kind {
	case ResourceKindBuffer:
		return fmt.Sprintf("buffer{size=%d usage=%#x}", d.Buffer.Size, uint64(d.Buffer.Usage))
	case ResourceKindTexture:
		t := d.Texture
		return fmt.Sprintf("texture{%dx%dx%d format=%d mips=%d}", t.Size.Width, t.Size.Height, t.Size.DepthOrArrayLayers, t.Format, t.MipLevelCount)
	case ResourceKindTextureView:
		t := d.TextureView.Texture
		return fmt.Sprintf("texture_view{%dx%d format=%d}", t.Size.Width, t.Size.Height, d.TextureView.Format)
	case ResourceKindSwapChain:
		return fmt.Sprintf("swap_chain{%dx%d format=%d}", d.SwapChain.Width, d.SwapChain.Height, d.SwapChain.Format)
	default:
		return "unknown"
	}
}

/**
 * @brief Tagged union over the concrete resource objects. Exactly one of the
 * pointers is set, selected by kind. Use Borrow to get the typed object back.
 */
type Resource struct {
	kind      ResourceKind
	buffer    *Buffer
	texture   *Texture
	view      *TextureView
	swapChain *SwapChainImage
}

/** @brief Constraint listing every concrete resource object. */
type Concrete interface {
	*Buffer | *Texture | *TextureView | *SwapChainImage
}

// Wrap stores a concrete object in a Resource. A nil object gives an invalid Resource.
func Wrap[T Concrete](obj T) Resource {
	switch v := any(obj).(type) {
	case *Buffer:
		if v != nil {
			return Resource{kind: ResourceKindBuffer, buffer: v}
		}
	case *Texture:
		if v != nil {
			return Resource{kind: ResourceKindTexture, texture: v}
		}
	case *TextureView:
		if v != nil {
			return Resource{kind: ResourceKindTextureView, view: v}
		}
	case *SwapChainImage:
		if v != nil {
			return Resource{kind: ResourceKindSwapChain, swapChain: v}
		}
	}
	return Resource{}
}

// KindOf returns the resource kind that T is stored under.
func KindOf[T Concrete]() ResourceKind {
	var zero T
	switch any(zero).(type) {
	case *Buffer:
		return ResourceKindBuffer
	case *Texture:
		return ResourceKindTexture
	case *TextureView:
		return ResourceKindTextureView
	case *SwapChainImage:
		return ResourceKindSwapChain
	}
	return ResourceKindUnknown
}

// Borrow returns the concrete object of type T, or ErrResourceTypeMismatch
// when the resource holds a different kind.
func Borrow[T Concrete](r Resource) (T, error) {
	var zero T
	if want := KindOf[T](); r.kind != want {
		return zero, fmt.Errorf("%w: want %s, got %s", core.ErrResourceTypeMismatch, want, r.kind)
	}
	var out any
	switch r.kind {
	case ResourceKindBuffer:
		out = r.buffer
	case ResourceKindTexture:
		out = r.texture
	case ResourceKindTextureView:
		out = r.view
	case ResourceKindSwapChain:
		out = r.swapChain
	}
	return out.(T), nil
}

func (r Resource) Kind() ResourceKind {
	return r.kind
}

func (r Resource) IsValid() bool {
	return r.kind != ResourceKindUnknown
}

func (r Resource) Descriptor() Descriptor {
	switch r.kind {
	case ResourceKindBuffer:
		return BufferDesc(r.buffer.Desc)
	case ResourceKindTexture:
		return TextureDesc(r.texture.Desc)
	case ResourceKindTextureView:
		return TextureViewDesc(r.view.Desc)
	case ResourceKindSwapChain:
		return SwapChainDesc(r.swapChain.Desc)
	}
	return Descriptor{}
}

func (r Resource) Label() string {
	switch r.kind {
	case ResourceKindBuffer:
		return r.buffer.Label
	case ResourceKindTexture:
		return r.texture.Label
	case ResourceKindTextureView:
		return r.view.Label
	case ResourceKindSwapChain:
		return r.swapChain.Label
	}
	return ""
}

// Same reports whether both resources hold the very same object.
func (r Resource) Same(other Resource) bool {
	return r == other
}
