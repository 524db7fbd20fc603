package driver

import (
	"errors"
	"fmt"
)

// DefaultMaxIncludeDepth bounds include nesting independently of cycle
// detection.
const DefaultMaxIncludeDepth = 32

var (
	// ErrIncludeCycle: a unit includes itself, directly or transitively.
	ErrIncludeCycle = errors.New("driver: include cycle")

	// ErrIncludeDepth: include nesting exceeded the configured limit.
	ErrIncludeDepth = errors.New("driver: include nesting too deep")

	// ErrNoInclude is an internal-consistency failure: Exit on an empty
	// stack. It indicates a driver bug, not a user error.
	ErrNoInclude = errors.New("driver: include stack underflow")
)

// Frame identifies one open source unit.
type Frame struct {
	Path string
	Main bool
}

// IncludeStack tracks which source unit is currently being lexed. The frame
// on top attributes diagnostics; depth one means the main unit itself.
// Pure state: no I/O, fails only on invariant violations.
type IncludeStack struct {
	frames   []Frame
	maxDepth int
}

// NewIncludeStack creates an empty stack. maxDepth of 0 or less selects
// DefaultMaxIncludeDepth.
func NewIncludeStack(maxDepth int) *IncludeStack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxIncludeDepth
	}
	return &IncludeStack{maxDepth: maxDepth}
}

// Enter pushes a frame for path. The first frame pushed is the main unit.
// Pushing a path already on the stack fails with ErrIncludeCycle.
func (s *IncludeStack) Enter(path string) error {
	if len(s.frames) >= s.maxDepth {
		return fmt.Errorf("%w: depth %d", ErrIncludeDepth, len(s.frames))
	}
	for _, f := range s.frames {
		if f.Path == path {
			return fmt.Errorf("%w: %s already open", ErrIncludeCycle, path)
		}
	}
	s.frames = append(s.frames, Frame{Path: path, Main: len(s.frames) == 0})
	return nil
}

// Exit pops the top frame.
func (s *IncludeStack) Exit() error {
	if len(s.frames) == 0 {
		return ErrNoInclude
	}
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// IsTopLevel reports whether exactly the main unit is open.
func (s *IncludeStack) IsTopLevel() bool {
	return len(s.frames) == 1
}

// Depth returns the number of open frames.
func (s *IncludeStack) Depth() int {
	return len(s.frames)
}

// Current returns the frame whose source is being lexed right now.
func (s *IncludeStack) Current() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}
