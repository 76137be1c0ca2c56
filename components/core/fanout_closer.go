package core

// FanoutCloser propagates a close call to the underlying closers.
type FanoutCloser struct {
	closers []closerNode
}

// Add closer with id to be notified when the close event is happened.
func (c *FanoutCloser) Add(id string, closer Closer) {
	c.closers = append(c.closers, closerNode{id: id, c: closer})
}

// Close all registered closers.
func (c *FanoutCloser) Close() error {
	for _, node := range c.closers {
		if err := node.c.Close(); err != nil {
			LogErr.Printf("fanout-closer: failed to close: id=%s err=%v\n", node.id, err)
		}
	}

	return nil
}

type closerNode struct {
	id string
	c  Closer
}
