package logger

import (
	"strings"
	"sync"
)

// Buffer is a thread-safe ring of the most recent log lines. It implements
// io.Writer; every Write is treated as one line.
type Buffer struct {
	mu           sync.Mutex
	lines        []string
	maxSize      int
	currentIndex int
	wrapped      bool
	total        uint64
}

// NewBuffer creates a buffer that keeps the last maxSize lines.
func NewBuffer(maxSize int) *Buffer {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Buffer{lines: make([]string, maxSize), maxSize: maxSize}
}

// Write stores p as one line.
func (b *Buffer) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines[b.currentIndex] = line
	b.currentIndex = (b.currentIndex + 1) % b.maxSize
	if b.currentIndex == 0 {
		b.wrapped = true
	}
	b.total++
	return len(p), nil
}

// Recent returns up to limit lines, oldest first. limit <= 0 returns all.
func (b *Buffer) Recent(limit int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	count, start := b.currentIndex, 0
	if b.wrapped {
		count, start = b.maxSize, b.currentIndex
	}
	if limit > 0 && limit < count {
		start += count - limit
		count = limit
	}

	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, b.lines[(start+i)%b.maxSize])
	}
	return out
}

// Total returns the number of lines ever written.
func (b *Buffer) Total() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}
