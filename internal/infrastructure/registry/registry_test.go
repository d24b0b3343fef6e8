package registry

import (
	"testing"
)

const sampleYAML = `
corpora:
  - id: hansard_nsw
    title: New South Wales Hansard
    description: Parliamentary debates.
  - id: press_trove
    title: Historical press
`

func TestParse(t *testing.T) {
	reg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !reg.Contains("hansard_nsw") || !reg.Contains("press_trove") {
		t.Fatal("expected both corpora registered")
	}
	if reg.Contains("atlantis") {
		t.Fatal("unknown corpus must not be contained")
	}
}

func TestParse_ListIsSorted(t *testing.T) {
	reg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	ids := reg.List()
	if len(ids) != 2 || ids[0] != "hansard_nsw" || ids[1] != "press_trove" {
		t.Fatalf("List() = %v, want sorted ids", ids)
	}
}

func TestParse_ListReturnsCopy(t *testing.T) {
	reg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	ids := reg.List()
	ids[0] = "mutated"
	if reg.List()[0] == "mutated" {
		t.Fatal("List must return a defensive copy")
	}
}

func TestDescribe(t *testing.T) {
	reg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	info, ok := reg.Describe("hansard_nsw")
	if !ok {
		t.Fatal("expected known corpus to be describable")
	}
	if info.ID != "hansard_nsw" || info.Title != "New South Wales Hansard" || info.Description != "Parliamentary debates." {
		t.Fatalf("info = %+v", info)
	}

	if _, ok := reg.Describe("atlantis"); ok {
		t.Fatal("unknown corpus must not be describable")
	}
}

func TestParse_Invalid(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":        `corpora: []`,
		"missing id":   "corpora:\n  - title: no id here",
		"duplicate id": "corpora:\n  - id: a\n  - id: a",
		"broken yaml":  `corpora: [`,
	} {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile("testdata/does-not-exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
