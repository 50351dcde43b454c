package cache

import "testing"

func TestGetMissThenPutThenHit(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, ok := c.Get(Pos{X: 1, Z: 2}); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put(Pos{X: 1, Z: 2}, []byte("blob"))
	blob, ok := c.Get(Pos{X: 1, Z: 2})
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if string(blob) != "blob" {
		t.Fatalf("expected blob content, got %q", blob)
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("expected 1 hit and 1 miss, got hits=%d misses=%d", hits, misses)
	}
}

func TestEvictionAtCapacity(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	c.Put(Pos{X: 0, Z: 0}, []byte("a"))
	c.Put(Pos{X: 1, Z: 0}, []byte("b"))
	c.Put(Pos{X: 2, Z: 0}, []byte("c")) // should evict (0,0), the LRU entry

	if _, ok := c.Get(Pos{X: 0, Z: 0}); ok {
		t.Fatal("expected (0,0) to have been evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("expected cache length 2, got %d", c.Len())
	}
}

func TestRemove(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c.Put(Pos{X: 5, Z: 5}, []byte("x"))
	c.Remove(Pos{X: 5, Z: 5})
	if _, ok := c.Get(Pos{X: 5, Z: 5}); ok {
		t.Fatal("expected miss after Remove")
	}
}

func TestNewFallsBackToDefaultCapacity(t *testing.T) {
	c, err := New(0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c == nil {
		t.Fatal("expected non-nil cache")
	}
}
