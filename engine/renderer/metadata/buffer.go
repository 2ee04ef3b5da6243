package metadata

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

/** @brief Describes a GPU buffer. Two buffers with equal descriptors are interchangeable. */
type BufferDescriptor struct {
	/** @brief The size of the buffer in bytes. */
	Size uint64
	/** @brief How the buffer is going to be used. */
	Usage gputypes.BufferUsage
	/** @brief Whether the buffer starts mapped for CPU writes. */
	MappedAtCreation bool
}

func (d BufferDescriptor) Validate() error {
	if d.Size == 0 {
		return fmt.Errorf("buffer size must be greater than 0")
	}
	if d.Usage == gputypes.BufferUsageNone {
		return fmt.Errorf("buffer usage must not be empty")
	}
	return nil
}

/**
 * @brief A concrete GPU buffer owned by the device backend.
 */
type Buffer struct {
	/** @brief Backend assigned identifier. */
	ID uint64
	/** @brief Debug label. */
	Label string
	/** @brief The descriptor the buffer was created with. */
	Desc BufferDescriptor
	/** @brief Backend specific data. */
	InternalData interface{}
}

/** @brief A half open [Start, End) range of vertices, indices or instances. */
type Range struct {
	Start uint32
	End   uint32
}

func NewRange(start, end uint32) Range {
	return Range{Start: start, End: end}
}

func (r Range) Len() uint32 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}
