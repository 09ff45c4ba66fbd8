package nettle

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTemplateRegistry(t *testing.T) {
	registry := NewTemplateRegistry()

	for _, name := range []string{"", "with space", "dash-ed", "dot.ted"} {
		if err := registry.Add(&RegisteredTemplate{Name: name}); err == nil {
			t.Errorf("Add(%q) should fail", name)
		}
	}

	for _, name := range []string{"Footer", "Header", "Row2"} {
		if err := registry.Add(&RegisteredTemplate{Name: name}); err != nil {
			t.Fatalf("Add(%q) error = %v", name, err)
		}
	}
	if err := registry.Add(&RegisteredTemplate{Name: "Header"}); !errors.Is(err, ErrDuplicateTemplate) {
		t.Errorf("Add(Header) twice error = %v, want ErrDuplicateTemplate", err)
	}

	if diff := cmp.Diff([]string{"Footer", "Header", "Row2"}, registry.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	if !registry.Contains("Footer") || registry.Contains("footer") {
		t.Error("Contains should match names exactly")
	}

	tmpl, ok := registry.GetTemplate("Row2")
	if !ok || tmpl.Name != "Row2" {
		t.Errorf("GetTemplate(Row2) = %v, %v", tmpl, ok)
	}

	if err := registry.Remove("Footer"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := registry.Remove("Footer"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Remove() twice error = %v, want ErrTemplateNotFound", err)
	}
	if registry.Len() != 2 {
		t.Errorf("Len() = %d, want 2", registry.Len())
	}
}

func TestTemplateRegistry_Concurrent(t *testing.T) {
	registry := NewTemplateRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("T%d", i)
			if err := registry.Add(&RegisteredTemplate{Name: name}); err != nil {
				t.Errorf("Add(%s) error = %v", name, err)
			}
			registry.Contains(name)
			registry.List()
		}(i)
	}
	wg.Wait()

	if registry.Len() != 20 {
		t.Errorf("Len() = %d, want 20", registry.Len())
	}
}
