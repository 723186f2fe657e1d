package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesBuiltInCatalog(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if c.DefaultID() != DefaultModelID {
		t.Errorf("default = %q, want %q", c.DefaultID(), DefaultModelID)
	}
	if len(c.List()) != 3 {
		t.Errorf("built-in catalog has %d models, want 3", len(c.List()))
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	content := `models:
  - id: test-model
    name: Test Model
    description: a model
    max_tokens: 100
    temperature: 0.5
    top_p: 0.8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	p, ok := c.Get("test-model")
	if !ok {
		t.Fatal("test-model not found in catalog")
	}
	if p.MaxTokens != 100 || p.Temperature != 0.5 || p.TopP != 0.8 {
		t.Errorf("profile = %+v", p)
	}
	// Default falls back to the first profile when deepseek-r1-250120
	// is absent.
	if c.DefaultID() != "test-model" {
		t.Errorf("default = %q", c.DefaultID())
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte("models: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestGetUnknownModel(t *testing.T) {
	c, err := New(defaultProfiles())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("no-such-model"); ok {
		t.Error("unknown model id resolved")
	}
}

func TestNewRejectsDuplicatesAndEmpty(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for empty catalog")
	}
	dup := []Profile{{ID: "a"}, {ID: "a"}}
	if _, err := New(dup); err == nil {
		t.Error("expected error for duplicate ids")
	}
	if _, err := New([]Profile{{ID: ""}}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestListPreservesOrder(t *testing.T) {
	c, err := New([]Profile{{ID: "b"}, {ID: "a"}, {ID: "c"}})
	if err != nil {
		t.Fatal(err)
	}
	got := c.List()
	want := []string{"b", "a", "c"}
	for i, p := range got {
		if p.ID != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, p.ID, want[i])
		}
	}
}
