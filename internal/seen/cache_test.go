package seen

import (
	"fmt"
	"testing"
	"time"
)

func TestAddAndHas(t *testing.T) {
	c := New(10 * time.Second)
	defer c.Close()
	k := Key("10.0.0.1", 10001, "general", "hello")

	if c.Has(k) {
		t.Fatal("fresh cache should not have key")
	}
	if !c.Add(k) {
		t.Fatal("first Add should return true (new)")
	}
	if !c.Has(k) {
		t.Fatal("should have key after Add")
	}
	if c.Add(k) {
		t.Fatal("second Add should return false (duplicate)")
	}
}

func TestWindowExpiry(t *testing.T) {
	c := New(50 * time.Millisecond)
	defer c.Close()
	k := Key("10.0.0.1", 10001, "team", "hi")
	if !c.Add(k) {
		t.Fatal("first Add should be new")
	}
	if c.Add(k) {
		t.Fatal("Add within window should be a duplicate")
	}

	time.Sleep(100 * time.Millisecond)
	if !c.Add(k) {
		t.Fatal("Add after window should be accepted as new")
	}
}

func TestKeyDefaultsChannel(t *testing.T) {
	explicit := Key("10.0.0.1", 10001, "general", "hi")
	implicit := Key("10.0.0.1", 10001, "", "hi")
	if explicit != implicit {
		t.Fatalf("empty channel should map to general: %q vs %q", explicit, implicit)
	}

	other := Key("10.0.0.1", 10001, "team", "hi")
	if other == explicit {
		t.Fatal("distinct channels must produce distinct keys")
	}
}

func TestDistinctKeysIndependent(t *testing.T) {
	c := New(10 * time.Second)
	defer c.Close()
	for i := 0; i < 100; i++ {
		k := Key("10.0.0.2", 10000+i, "general", fmt.Sprintf("msg-%d", i))
		if !c.Add(k) {
			t.Fatalf("key %d should be new", i)
		}
	}
	if c.Len() != 100 {
		t.Fatalf("expected 100 entries, got %d", c.Len())
	}
}

func TestReapRemovesExpired(t *testing.T) {
	c := New(20 * time.Millisecond)
	defer c.Close()
	for i := 0; i < 50; i++ {
		c.Add(Key("10.0.0.3", 10000, "general", fmt.Sprintf("m%d", i)))
	}
	time.Sleep(100 * time.Millisecond)
	if c.Len() != 0 {
		t.Fatalf("expected reaper to clear expired entries, got %d", c.Len())
	}
}
