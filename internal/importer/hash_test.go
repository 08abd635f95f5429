package importer

import "testing"

func TestNormalizeCleansFields(t *testing.T) {
	draft := Draft{
		Question: "  Why is the map read racy? \r\n",
		Answer:   "Concurrent map access needs a lock.",
		Topic:    "Concurrency",
	}
	expected := "why is the map read racy?\nconcurrent map access needs a lock.\nconcurrency"
	if got := normalize(draft); got != expected {
		t.Errorf("normalize = %q, want %q", got, expected)
	}
}

func TestContentHash(t *testing.T) {
	t.Run("hash is deterministic", func(t *testing.T) {
		d1 := Draft{Question: "Test"}
		d2 := Draft{Question: "Test"}
		if ContentHash(d1) != ContentHash(d2) {
			t.Error("expected identical drafts to hash the same")
		}
	})

	t.Run("normalization produces the same hash", func(t *testing.T) {
		d1 := Draft{Question: "  what is a nil map? ", Answer: "Reads work, writes panic."}
		d2 := Draft{Question: "What Is A Nil Map?", Answer: "Reads work, writes panic."}
		if ContentHash(d1) != ContentHash(d2) {
			t.Error("expected hashes to match after normalization")
		}
	})

	t.Run("different drafts have different hashes", func(t *testing.T) {
		d1 := Draft{Question: "Draft 1"}
		d2 := Draft{Question: "Draft 2"}
		if ContentHash(d1) == ContentHash(d2) {
			t.Error("expected different drafts to hash differently")
		}
	})

	t.Run("field boundaries matter", func(t *testing.T) {
		d1 := Draft{Question: "ab", Answer: "c"}
		d2 := Draft{Question: "a", Answer: "bc"}
		if ContentHash(d1) == ContentHash(d2) {
			t.Error("expected adjacent fields not to collide")
		}
	})
}
