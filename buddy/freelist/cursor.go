package freelist

// Cursor walks a List and can unlink the block it is positioned on in O(1)
// without disturbing the rest of the traversal.
//
//	c := list.Cursor(mem)
//	for c.Next() {
//	    if c.Value() == target {
//	        c.Remove()
//	        break
//	    }
//	}
type Cursor struct {
	list *List
	mem  Memory

	// prev is the block whose link points at cur, or Nil when cur is the head.
	prev Addr
	cur  Addr

	started bool
	removed bool
}

// Next advances to the next block and reports whether there is one.
func (c *Cursor) Next() bool {
	switch {
	case !c.started:
		c.started = true
		c.cur = c.list.head()
	case c.removed:
		// prev is unchanged; its link (or the head) already names the successor.
		c.removed = false
		c.cur = c.successorOf(c.prev)
	case c.cur != Nil:
		c.prev = c.cur
		c.cur = Addr(c.mem.LoadWord(c.cur))
	}
	return c.cur != Nil
}

// Value returns the block the cursor is positioned on.
func (c *Cursor) Value() Addr {
	return c.cur
}

// Remove unlinks the current block. It must follow a successful Next and may
// be called at most once per position.
func (c *Cursor) Remove() {
	if c.cur == Nil || c.removed {
		panic("buddy: freelist cursor has no current block")
	}
	next := c.mem.LoadWord(c.cur)
	if c.prev == Nil {
		c.list.setHead(Addr(next))
	} else {
		c.mem.StoreWord(c.prev, next)
	}
	c.removed = true
}

func (c *Cursor) successorOf(prev Addr) Addr {
	if prev == Nil {
		return c.list.head()
	}
	return Addr(c.mem.LoadWord(prev))
}
