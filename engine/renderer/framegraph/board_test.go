package framegraph

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func TestBoardLastPutWins(t *testing.T) {
	board := NewResourceBoard()
	first := RawResourceNodeHandle{Node: 1, Resource: 1, Kind: metadata.ResourceKindBuffer}
	second := RawResourceNodeHandle{Node: 2, Resource: 1, Kind: metadata.ResourceKindBuffer}

	board.Put("b", first)
	board.Put("a", first)
	board.Put("b", second)

	got, ok := board.Get("b")
	require.True(t, ok)
	assert.Equal(t, second, got)
	_, ok = board.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, board.Names())

	board.Clear()
	assert.Equal(t, 0, board.Len())
}

func TestReadFromBoard(t *testing.T) {
	fg := New("board")
	desc := metadata.SwapChainDesc(metadata.SwapChainDescriptor{Width: 8, Height: 8, Format: gputypes.TextureFormatBGRA8Unorm})
	backbuffer, err := CreateResource[*metadata.SwapChainImage](fg, "backbuffer", desc)
	require.NoError(t, err)
	fg.Board().Put("present-target", backbuffer.Raw())

	require.NoError(t, fg.AddPass("present", 0, func(b *PassNodeBuilder) error {
		ref, ok := ReadFromBoard[*metadata.SwapChainImage](b, "present-target")
		assert.True(t, ok)
		assert.Equal(t, backbuffer, ref.Handle())

		_, ok = ReadFromBoard[*metadata.SwapChainImage](b, "nothing")
		assert.False(t, ok)
		return nil
	}))

	err = fg.AddPass("wrong-kind", 1, func(b *PassNodeBuilder) error {
		_, ok := ReadFromBoard[*metadata.Buffer](b, "present-target")
		assert.False(t, ok)
		return nil
	})
	assert.ErrorIs(t, err, core.ErrResourceTypeMismatch)
}

func TestPersistedBoardDetectsStaleHandles(t *testing.T) {
	board := NewResourceBoard()
	fg := NewWithBoard("persisted", board)

	h, err := CreateResource[*metadata.Buffer](fg, "history", bufferDesc(16))
	require.NoError(t, err)
	board.Put("history", h.Raw())
	require.NoError(t, fg.Compile())
	fg.Reset()

	// the handle survived on the board but its graph did not, so it reads as missing
	_, ok := fg.FromBoard("history")
	assert.False(t, ok)
	err = fg.AddPass("reader", 0, func(b *PassNodeBuilder) error {
		_, ok := ReadFromBoard[*metadata.Buffer](b, "history")
		assert.False(t, ok)
		return b.Err()
	})
	require.NoError(t, err)
	assert.Same(t, board, fg.Board())

	// republishing in the new frame makes it readable again
	h, err = CreateResource[*metadata.Buffer](fg, "history", bufferDesc(16))
	require.NoError(t, err)
	board.Put("history", h.Raw())
	require.NoError(t, fg.AddPass("reader-2", 1, func(b *PassNodeBuilder) error {
		_, ok := ReadFromBoard[*metadata.Buffer](b, "history")
		assert.True(t, ok)
		return nil
	}))
	require.NoError(t, fg.Compile())
}
