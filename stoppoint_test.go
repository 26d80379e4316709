package sdb

import "testing"

// fakeSite lets the collection be tested without a live tracee.
type fakeSite struct {
	id      int64
	addr    VAddr
	size    uint64
	enabled bool
}

func (f *fakeSite) ID() int64      { return f.id }
func (f *fakeSite) Address() VAddr { return f.addr }
func (f *fakeSite) InRange(a VAddr) bool {
	return uint64(a) >= uint64(f.addr) && uint64(a) < uint64(f.addr)+f.size
}
func (f *fakeSite) IsEnabled() bool { return f.enabled }
func (f *fakeSite) Enable() error   { f.enabled = true; return nil }
func (f *fakeSite) Disable() error  { f.enabled = false; return nil }

func newFakeCollection(addrs ...VAddr) *StoppointCollection[*fakeSite] {
	c := &StoppointCollection[*fakeSite]{}
	for i, a := range addrs {
		c.Push(&fakeSite{id: int64(i + 1), addr: a, size: 1})
	}
	return c
}

func TestCollectionLookup(t *testing.T) {
	c := newFakeCollection(0x1000, 0x2000, 0x3000)

	if !c.ContainsID(2) || c.ContainsID(99) {
		t.Error("ContainsID mismatch")
	}
	if !c.ContainsAddress(0x2000) || c.ContainsAddress(0x2001) {
		t.Error("ContainsAddress mismatch")
	}

	p, ok := c.GetByID(3)
	if !ok || p.addr != 0x3000 {
		t.Errorf("GetByID(3) = %+v, %v", p, ok)
	}
	p, ok = c.GetByAddress(0x1000)
	if !ok || p.id != 1 {
		t.Errorf("GetByAddress(0x1000) = %+v, %v", p, ok)
	}
}

func TestCollectionRemoveDisablesFirst(t *testing.T) {
	c := newFakeCollection(0x1000, 0x2000)
	site, _ := c.GetByID(1)
	site.Enable()

	if err := c.RemoveByID(1); err != nil {
		t.Fatalf("RemoveByID: %v", err)
	}
	if site.enabled {
		t.Error("site still enabled after removal")
	}
	if c.ContainsID(1) || c.Size() != 1 {
		t.Error("site not removed")
	}

	if err := c.RemoveByID(1); !IsKind(err, KindNotFound) {
		t.Errorf("second remove = %v, want NotFound", err)
	}
}

func TestCollectionEnabledAt(t *testing.T) {
	c := newFakeCollection(0x1000)
	if c.EnabledStoppointAtAddress(0x1000) {
		t.Error("reported enabled before Enable")
	}
	site, _ := c.GetByAddress(0x1000)
	site.Enable()
	if !c.EnabledStoppointAtAddress(0x1000) {
		t.Error("not reported enabled after Enable")
	}
}

func TestCollectionGetInRegion(t *testing.T) {
	c := newFakeCollection(0x1000, 0x1010, 0x2000)
	got := c.GetInRegion(0x1000, 0x1800)
	if len(got) != 2 {
		t.Fatalf("GetInRegion = %d sites, want 2", len(got))
	}
	for _, p := range got {
		if p.addr >= 0x1800 {
			t.Errorf("site %s outside region", p.addr)
		}
	}
}

func TestCollectionIDsStrictlyIncreasing(t *testing.T) {
	c := newFakeCollection(0x1000, 0x2000, 0x3000)
	var prev int64
	c.ForEach(func(p *fakeSite) {
		if p.id <= prev {
			t.Errorf("id %d not greater than %d", p.id, prev)
		}
		prev = p.id
	})
}
