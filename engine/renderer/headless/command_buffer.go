package headless

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
)

func (s CommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_READY:
		return "ready"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "recording"
	case COMMAND_BUFFER_STATE_IN_RENDER_PASS:
		return "in_render_pass"
	case COMMAND_BUFFER_STATE_RECORDING_ENDED:
		return "recording_ended"
	case COMMAND_BUFFER_STATE_SUBMITTED:
		return "submitted"
	}
	return "unknown"
}

type CommandOp string

const (
	OpBeginRenderPass   CommandOp = "begin_render_pass"
	OpEndRenderPass     CommandOp = "end_render_pass"
	OpSetRenderPipeline CommandOp = "set_render_pipeline"
	OpSetVertexBuffer   CommandOp = "set_vertex_buffer"
	OpSetIndexBuffer    CommandOp = "set_index_buffer"
	OpSetBindGroup      CommandOp = "set_bind_group"
	OpDraw              CommandOp = "draw"
	OpDrawIndexed       CommandOp = "draw_indexed"
)

// Command is one recorded command. Only the fields relevant to Op are set.
type Command struct {
	Op         CommandOp
	RenderPass *metadata.RenderPassDescriptor
	Pipeline   *metadata.RenderPipeline
	Buffer     *metadata.Buffer
	Slot       uint32
	IndexFmt   gputypes.IndexFormat
	BindGroup  *metadata.BindGroup
	Vertices   metadata.Range
	Instances  metadata.Range
	BaseVertex int32
}

// CommandBuffer records commands in memory and checks they come in a legal order.
type CommandBuffer struct {
	label    string
	State    CommandBufferState
	Commands []Command

	pipeline    *metadata.RenderPipeline
	indexBuffer *metadata.Buffer
}

func newCommandBuffer(label string) *CommandBuffer {
	return &CommandBuffer{
		label: label,
		State: COMMAND_BUFFER_STATE_RECORDING,
	}
}

func (c *CommandBuffer) Label() string {
	return c.label
}

func (c *CommandBuffer) expect(op CommandOp, states ...CommandBufferState) error {
	for _, s := range states {
		if c.State == s {
			return nil
		}
	}
	return fmt.Errorf("command buffer %s: %s not allowed while %s", c.label, op, c.State)
}

func (c *CommandBuffer) BeginRenderPass(desc *metadata.RenderPassDescriptor) error {
	if err := c.expect(OpBeginRenderPass, COMMAND_BUFFER_STATE_RECORDING); err != nil {
		return err
	}
	for i, a := range desc.ColorAttachments {
		if a.View == nil {
			return fmt.Errorf("command buffer %s: color attachment %d has no view", c.label, i)
		}
	}
	c.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	c.Commands = append(c.Commands, Command{Op: OpBeginRenderPass, RenderPass: desc})
	return nil
}

func (c *CommandBuffer) EndRenderPass() error {
	if err := c.expect(OpEndRenderPass, COMMAND_BUFFER_STATE_IN_RENDER_PASS); err != nil {
		return err
	}
	c.State = COMMAND_BUFFER_STATE_RECORDING
	c.pipeline = nil
	c.indexBuffer = nil
	c.Commands = append(c.Commands, Command{Op: OpEndRenderPass})
	return nil
}

func (c *CommandBuffer) SetRenderPipeline(pipeline *metadata.RenderPipeline) error {
	if err := c.expect(OpSetRenderPipeline, COMMAND_BUFFER_STATE_IN_RENDER_PASS); err != nil {
		return err
	}
	c.pipeline = pipeline
	c.Commands = append(c.Commands, Command{Op: OpSetRenderPipeline, Pipeline: pipeline})
	return nil
}

func (c *CommandBuffer) SetVertexBuffer(slot uint32, buffer *metadata.Buffer, offset uint64) error {
	if err := c.expect(OpSetVertexBuffer, COMMAND_BUFFER_STATE_IN_RENDER_PASS); err != nil {
		return err
	}
	if buffer.Desc.Usage&gputypes.BufferUsageVertex == 0 {
		return fmt.Errorf("command buffer %s: buffer %s lacks vertex usage", c.label, buffer.Label)
	}
	if offset >= buffer.Desc.Size {
		return fmt.Errorf("command buffer %s: vertex offset %d out of %s", c.label, offset, buffer.Label)
	}
	c.Commands = append(c.Commands, Command{Op: OpSetVertexBuffer, Slot: slot, Buffer: buffer})
	return nil
}

func (c *CommandBuffer) SetIndexBuffer(buffer *metadata.Buffer, format gputypes.IndexFormat, offset uint64) error {
	if err := c.expect(OpSetIndexBuffer, COMMAND_BUFFER_STATE_IN_RENDER_PASS); err != nil {
		return err
	}
	if buffer.Desc.Usage&gputypes.BufferUsageIndex == 0 {
		return fmt.Errorf("command buffer %s: buffer %s lacks index usage", c.label, buffer.Label)
	}
	if offset >= buffer.Desc.Size {
		return fmt.Errorf("command buffer %s: index offset %d out of %s", c.label, offset, buffer.Label)
	}
	c.indexBuffer = buffer
	c.Commands = append(c.Commands, Command{Op: OpSetIndexBuffer, Buffer: buffer, IndexFmt: format})
	return nil
}

func (c *CommandBuffer) SetBindGroup(index uint32, group *metadata.BindGroup) error {
	if err := c.expect(OpSetBindGroup, COMMAND_BUFFER_STATE_IN_RENDER_PASS); err != nil {
		return err
	}
	c.Commands = append(c.Commands, Command{Op: OpSetBindGroup, Slot: index, BindGroup: group})
	return nil
}

func (c *CommandBuffer) Draw(vertices, instances metadata.Range) error {
	if err := c.expect(OpDraw, COMMAND_BUFFER_STATE_IN_RENDER_PASS); err != nil {
		return err
	}
	if c.pipeline == nil {
		return fmt.Errorf("command buffer %s: draw without a pipeline", c.label)
	}
	c.Commands = append(c.Commands, Command{Op: OpDraw, Vertices: vertices, Instances: instances})
	return nil
}

func (c *CommandBuffer) DrawIndexed(indices metadata.Range, baseVertex int32, instances metadata.Range) error {
	if err := c.expect(OpDrawIndexed, COMMAND_BUFFER_STATE_IN_RENDER_PASS); err != nil {
		return err
	}
	if c.pipeline == nil {
		return fmt.Errorf("command buffer %s: draw without a pipeline", c.label)
	}
	if c.indexBuffer == nil {
		return fmt.Errorf("command buffer %s: indexed draw without an index buffer", c.label)
	}
	c.Commands = append(c.Commands, Command{Op: OpDrawIndexed, Vertices: indices, BaseVertex: baseVertex, Instances: instances})
	return nil
}

func (c *CommandBuffer) Finish() error {
	if err := c.expect("finish", COMMAND_BUFFER_STATE_RECORDING); err != nil {
		return err
	}
	c.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

// Count returns how many commands of kind op were recorded.
func (c *CommandBuffer) Count(op CommandOp) int {
	n := 0
	for _, cmd := range c.Commands {
		if cmd.Op == op {
			n++
		}
	}
	return n
}
