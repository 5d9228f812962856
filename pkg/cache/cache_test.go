package cache

import (
	"math"
	"sync"
	"testing"

	"github.com/iris-ai/irisd/pkg/models"
)

func TestPutAndGet(t *testing.T) {
	c := NewMemory()
	f := models.Features{SepalLength: 5.1, SepalWidth: 3.5, PetalLength: 1.4, PetalWidth: 0.2}

	if _, ok := c.Get(f); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put(f, 2)
	label, ok := c.Get(f)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if label != 2 {
		t.Errorf("expected label 2, got %d", label)
	}
}

func TestExactKeyEquality(t *testing.T) {
	c := NewMemory()
	base := models.Features{SepalLength: 5.1, SepalWidth: 3.5, PetalLength: 1.4, PetalWidth: 0.2}
	c.Put(base, 0)

	// Perturb each component by the smallest representable amount.
	for i := range models.NumFeatures {
		v := base.Vector()
		v[i] = math.Nextafter(v[i], math.Inf(1))
		if _, ok := c.Get(models.NewFeatures(v)); ok {
			t.Errorf("component %d: perturbed vector must not hit", i)
		}
	}

	// 5.1 and 5.10 parse to the same float64.
	same := models.Features{SepalLength: 5.10, SepalWidth: 3.50, PetalLength: 1.40, PetalWidth: 0.20}
	if _, ok := c.Get(same); !ok {
		t.Error("identical values must hit")
	}
}

func TestStats(t *testing.T) {
	c := NewMemory()
	f := models.Features{SepalLength: 1}

	c.Put(f, 1)
	c.Get(f)                              // hit
	c.Get(models.Features{SepalWidth: 1}) // miss

	stats := c.Stats()
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := NewMemory()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f := models.Features{SepalLength: float64(i % 10)}
			c.Put(f, i%3)
			c.Get(f)
		}()
	}
	wg.Wait()

	if c.Len() != 10 {
		t.Errorf("expected 10 entries, got %d", c.Len())
	}
}
