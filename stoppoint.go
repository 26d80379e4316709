package sdb

// Stoppoint is the capability every member of a StoppointCollection
// must provide: an id, the address it sits at, whether that address
// falls inside its range, and enable/disable control. Breakpoint sites
// are single-address stoppoints; watchpoints have a byte range.
type Stoppoint interface {
	ID() int64
	Address() VAddr
	InRange(addr VAddr) bool
	IsEnabled() bool
	Enable() error
	Disable() error
}

// StoppointCollection owns a set of breakpoint or watchpoint sites
// belonging to one Process. Ids are assigned by the Process that
// creates each site, not by the collection, so that ids stay unique
// across the process's whole lifetime rather than resetting when a
// site is removed.
type StoppointCollection[T Stoppoint] struct {
	points []T
}

func (c *StoppointCollection[T]) Push(p T) T {
	c.points = append(c.points, p)
	return p
}

func (c *StoppointCollection[T]) ContainsID(id int64) bool {
	_, ok := c.findByID(id)
	return ok
}

func (c *StoppointCollection[T]) ContainsAddress(addr VAddr) bool {
	_, ok := c.findByAddress(addr)
	return ok
}

func (c *StoppointCollection[T]) EnabledStoppointAtAddress(addr VAddr) bool {
	p, ok := c.findByAddress(addr)
	return ok && p.IsEnabled()
}

func (c *StoppointCollection[T]) GetByID(id int64) (T, bool) {
	return c.findByID(id)
}

func (c *StoppointCollection[T]) GetByAddress(addr VAddr) (T, bool) {
	return c.findByAddress(addr)
}

// RemoveByID disables the site before erasing it, so no trap byte and
// no debug-register reservation can outlive its removal.
func (c *StoppointCollection[T]) RemoveByID(id int64) error {
	for i, p := range c.points {
		if p.ID() == id {
			err := p.Disable()
			c.points = append(c.points[:i], c.points[i+1:]...)
			return err
		}
	}
	return newErr(KindNotFound, "stoppoint.remove", nil)
}

func (c *StoppointCollection[T]) RemoveByAddress(addr VAddr) error {
	for i, p := range c.points {
		if p.InRange(addr) {
			err := p.Disable()
			c.points = append(c.points[:i], c.points[i+1:]...)
			return err
		}
	}
	return newErr(KindNotFound, "stoppoint.remove", nil)
}

// GetInRegion returns every site whose address falls inside [lo, hi).
func (c *StoppointCollection[T]) GetInRegion(lo, hi VAddr) []T {
	var out []T
	for _, p := range c.points {
		if uint64(p.Address()) >= uint64(lo) && uint64(p.Address()) < uint64(hi) {
			out = append(out, p)
		}
	}
	return out
}

func (c *StoppointCollection[T]) ForEach(f func(T)) {
	for _, p := range c.points {
		f(p)
	}
}

func (c *StoppointCollection[T]) Size() int   { return len(c.points) }
func (c *StoppointCollection[T]) Empty() bool { return len(c.points) == 0 }

func (c *StoppointCollection[T]) findByID(id int64) (T, bool) {
	for _, p := range c.points {
		if p.ID() == id {
			return p, true
		}
	}
	var zero T
	return zero, false
}

func (c *StoppointCollection[T]) findByAddress(addr VAddr) (T, bool) {
	for _, p := range c.points {
		if p.InRange(addr) {
			return p, true
		}
	}
	var zero T
	return zero, false
}
