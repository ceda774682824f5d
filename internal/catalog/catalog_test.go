package catalog

import (
	"math/rand"
	"testing"
)

func sampleCatalog() *Catalog {
	return New([]Product{
		{ID: "1", Category: "Electronics", Name: "Laptop"},
		{ID: "2", Category: "Electronics", Name: "Phone"},
		{ID: "3", Category: "Books", Name: "Novel"},
		{ID: "4", Category: "Home", Name: "Lamp"},
	}, []string{"Books", "Garden"})
}

func TestNew_MergesCategories(t *testing.T) {
	c := sampleCatalog()

	got := c.Categories()
	want := []string{"Books", "Garden", "Electronics", "Home"}
	if len(got) != len(want) {
		t.Fatalf("Categories() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Categories()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if c.Len() != 4 || c.Empty() {
		t.Errorf("unexpected size %d", c.Len())
	}
}

func TestCatalog_ImmutableCopies(t *testing.T) {
	products := []Product{{ID: "1"}}
	c := New(products, nil)
	products[0].ID = "changed"

	if c.Products()[0].ID != "1" {
		t.Error("catalog must not alias the caller's slice")
	}
	c.Products()[0].ID = "also changed"
	if c.Products()[0].ID != "1" {
		t.Error("Products() must return a copy")
	}
}

func TestPickPreferred_OnlyMatchingCategories(t *testing.T) {
	c := sampleCatalog()
	r := rand.New(rand.NewSource(5))

	counts := map[string]int{}
	for i := 0; i < 2000; i++ {
		counts[c.PickPreferred(r, []string{"Electronics"}, "101")]++
	}

	if counts["3"] > 0 || counts["4"] > 0 {
		t.Errorf("picked outside preferred categories: %v", counts)
	}
	if counts["1"] < 800 || counts["2"] < 800 {
		t.Errorf("expected roughly uniform choice between 1 and 2, got %v", counts)
	}
}

func TestPickPreferred_DuplicateCategoriesWeighedOnce(t *testing.T) {
	c := New([]Product{
		{ID: "a1", Category: "A"},
		{ID: "b1", Category: "B"},
	}, nil)
	r := rand.New(rand.NewSource(9))

	counts := map[string]int{}
	for i := 0; i < 4000; i++ {
		counts[c.PickPreferred(r, []string{"A", "A", "B"}, "101")]++
	}

	if counts["a1"] < 1800 || counts["b1"] < 1800 {
		t.Errorf("expected an even split between a1 and b1, got %v", counts)
	}
}

func TestPickPreferred_NoMatchFallsBackToCatalog(t *testing.T) {
	c := sampleCatalog()
	r := rand.New(rand.NewSource(5))

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		seen[c.PickPreferred(r, []string{"Toys"}, "101")] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected all products to be reachable, got %v", seen)
	}
	if seen["101"] {
		t.Error("fallback id must not be used while the catalog has products")
	}
}

func TestPickPreferred_EmptyCatalog(t *testing.T) {
	c := New(nil, nil)
	r := rand.New(rand.NewSource(1))

	if got := c.PickPreferred(r, []string{"Books"}, "101"); got != "101" {
		t.Errorf("expected fallback id 101, got %s", got)
	}
	if _, ok := c.PickProduct(r); ok {
		t.Error("PickProduct on empty catalog should report false")
	}
	if _, ok := c.PickCategory(r); ok {
		t.Error("PickCategory on empty catalog should report false")
	}
}

func TestPickCategory(t *testing.T) {
	c := sampleCatalog()
	r := rand.New(rand.NewSource(2))
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		name, ok := c.PickCategory(r)
		if !ok {
			t.Fatal("expected a category")
		}
		seen[name] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected all 4 categories, got %v", seen)
	}
}
