package rb

import "fmt"

type slot[T any] struct {
	occupied bool
	data     T
}

// cursors holds the positions of the ring and the number of filled slots.
// It must only be accessed while holding the ring mutex.
type cursors struct {
	writePos int
	readPos  int
	filled   int

	capacity int
}

func (c *cursors) advanceWrite() int {
	pos := c.writePos
	c.writePos = (c.writePos + 1) % c.capacity
	c.filled++
	return pos
}

func (c *cursors) advanceRead() int {
	pos := c.readPos
	c.readPos = (c.readPos + 1) % c.capacity
	c.filled--
	return pos
}

// check verifies that the filled count matches the distance between the cursors.
func (c *cursors) check() error {
	if c.filled < 0 || c.filled > c.capacity {
		return fmt.Errorf("%w: filled count %d out of [0, %d]", ErrInvariant, c.filled, c.capacity)
	}

	dist := (c.writePos - c.readPos + c.capacity) % c.capacity
	if dist != c.filled%c.capacity {
		return fmt.Errorf("%w: cursors (write %d, read %d) disagree with filled count %d",
			ErrInvariant, c.writePos, c.readPos, c.filled)
	}

	return nil
}
