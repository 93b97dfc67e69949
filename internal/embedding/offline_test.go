package embedding

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func TestOfflineEmbedder_Deterministic(t *testing.T) {
	e := NewOfflineEmbedder(1024)
	ctx := context.Background()
	first, err := e.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(first) != 1024 {
		t.Fatalf("dimension = %d, want 1024", len(first))
	}
	for i := 0; i < 10; i++ {
		again, err := e.Embed(ctx, "the quick brown fox")
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: embedding not bit-identical", i)
		}
	}
}

func TestOfflineEmbedder_DistinctTexts(t *testing.T) {
	e := NewOfflineEmbedder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "alpha")
	b, _ := e.Embed(ctx, "beta")
	if reflect.DeepEqual(a, b) {
		t.Fatal("different texts produced identical vectors")
	}
}

func TestOfflineEmbedder_UnitNorm(t *testing.T) {
	e := NewOfflineEmbedder(1024)
	v, _ := e.Embed(context.Background(), "normalize me")
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-4 {
		t.Errorf("norm = %f, want 1.0", math.Sqrt(sum))
	}
}

func TestOfflineEmbedder_BatchOrder(t *testing.T) {
	e := NewOfflineEmbedder(32)
	ctx := context.Background()
	texts := []string{"one", "two", "three"}
	batch, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(batch), len(texts))
	}
	for i, text := range texts {
		single, _ := e.Embed(ctx, text)
		if !reflect.DeepEqual(batch[i], single) {
			t.Errorf("batch[%d] does not match Embed(%q)", i, text)
		}
	}
}

func TestCachedEmbedder(t *testing.T) {
	inner := NewOfflineEmbedder(16)
	c := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	v1, err := c.Embed(ctx, "a")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	v2, err := c.Embed(ctx, "a")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if !reflect.DeepEqual(v1, v2) {
		t.Error("cached result differs")
	}
	// Fill past capacity and make sure evicted entries still embed correctly.
	_, _ = c.Embed(ctx, "b")
	_, _ = c.Embed(ctx, "c")
	v3, err := c.Embed(ctx, "a")
	if err != nil {
		t.Fatalf("Embed after eviction: %v", err)
	}
	if !reflect.DeepEqual(v1, v3) {
		t.Error("re-computed result differs from original")
	}
	if c.Dimensions() != 16 {
		t.Errorf("Dimensions = %d, want 16", c.Dimensions())
	}
}
