package record

import "sync/atomic"

// IDCounter hands out increasing ids. It is seeded once with the highest id
// already stored and is safe for concurrent use.
type IDCounter struct {
	last atomic.Int64
}

func NewIDCounter(maxExisting int) *IDCounter {
	c := &IDCounter{}
	c.last.Store(int64(maxExisting))
	return c
}

func (c *IDCounter) Next() int {
	return int(c.last.Add(1))
}
