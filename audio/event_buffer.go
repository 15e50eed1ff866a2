package audio

import (
	"runtime"
	"sync/atomic"
)

type commandKind int

const (
	cmdGate commandKind = iota
	cmdUngate
	cmdPlay
	cmdStop
	cmdSetContent
)

// command is one control intent crossing the control → render boundary.
// Gate commands carry a sample offset into the render buffer so events can
// land between buffer boundaries.
type command struct {
	kind     commandKind
	offset   int
	pitch    int
	velocity int

	// transport payload, ownership transfers to the render thread
	params StartParams
	notes  []Note
	loop   float64
}

// commandBuffer is a lock-free spsc queue. Exactly one goroutine may push
// and one may drain; it is the message channel between a control thread
// and the render thread.
type commandBuffer struct {
	commands    []command
	read, write *uint32
}

func newCommandBuffer(size int) *commandBuffer {
	if size <= 0 || size&(size-1) != 0 {
		panic("command buffer size must be a power of 2")
	}
	return &commandBuffer{
		commands: make([]command, size),
		read:     new(uint32),
		write:    new(uint32),
	}
}

func (b *commandBuffer) push(cmd command) {
	for atomic.LoadUint32(b.write)-atomic.LoadUint32(b.read) == uint32(len(b.commands)) {
		runtime.Gosched()
	}
	write := atomic.LoadUint32(b.write)
	b.commands[write%uint32(len(b.commands))] = cmd
	atomic.StoreUint32(b.write, write+1)
}

// drain calls f for queued commands in push order, stopping before the
// first command whose offset is at or past untilOffset. Pass -1 to drain
// everything.
func (b *commandBuffer) drain(untilOffset int, f func(command)) {
	read := atomic.LoadUint32(b.read)
	write := atomic.LoadUint32(b.write)
	for read != write {
		cmd := b.commands[read%uint32(len(b.commands))]
		if cmd.offset >= untilOffset && untilOffset != -1 {
			break
		}
		f(cmd)
		read++
	}
	atomic.StoreUint32(b.read, read)
}
