package status

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	assert.Equal(t, "success", Message(Success))
	assert.Equal(t, "out of GPU memory error", OutOfGPUMemory.String())
	assert.Equal(t, "interrupted", Message(Interrupted))
	assert.Equal(t, "unknown error", Message(Code(99)))
	assert.Equal(t, "unknown error", Message(Code(-1)))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Success, CodeOf(nil))
	assert.Equal(t, Unknown, CodeOf(fmt.Errorf("plain")))

	err := New(IllegalArgument, "stride %d", 0)
	assert.Equal(t, IllegalArgument, CodeOf(err))
	assert.Equal(t, "illegal argument error: stride 0", err.Error())

	wrapped := errors.Wrap(err, "pooling")
	assert.Equal(t, IllegalArgument, CodeOf(wrapped))
	assert.True(t, Is(fmt.Errorf("outer: %w", wrapped), IllegalArgument))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))

	err := New(OutOfMemory, "")
	assert.Equal(t, "out of memory error", err.Error())
	assert.Same(t, err, Wrap(err, ""))

	annotated := Wrap(err, "workspace")
	assert.Equal(t, "workspace: out of memory error", annotated.Error())
	assert.Equal(t, OutOfMemory, CodeOf(annotated))
}
