package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"trafficgen/internal/shop"
)

func newShopClient(t *testing.T, handler http.HandlerFunc) *shop.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := shop.NewClient(shop.Options{BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestLoad(t *testing.T) {
	client := newShopClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products":
			w.Write([]byte(`{"products": [{"id": 1, "category": "Books"}, {"id": 2, "category": "Home"}]}`))
		case "/categories":
			w.Write([]byte(`["Books", "Home", "Garden"]`))
		}
	})

	c, err := Load(context.Background(), client)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 products, got %d", c.Len())
	}
	if len(c.Categories()) != 3 {
		t.Errorf("expected 3 categories, got %v", c.Categories())
	}
}

func TestLoad_CategoriesFailDerivesFromProducts(t *testing.T) {
	client := newShopClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/categories" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"id": 1, "category": "Books"}]`))
	})

	c, err := Load(context.Background(), client)
	if err == nil {
		t.Error("expected category fetch error to be reported")
	}
	if c == nil || c.Len() != 1 {
		t.Fatal("products should still be returned")
	}
	if cats := c.Categories(); len(cats) != 1 || cats[0] != "Books" {
		t.Errorf("expected derived categories, got %v", cats)
	}
}

func TestLoad_ProductsFail(t *testing.T) {
	client := newShopClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := Load(context.Background(), client); err == nil {
		t.Error("expected error")
	}
}

func TestLoad_Empty(t *testing.T) {
	client := newShopClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	if _, err := Load(context.Background(), client); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestLoadFile_CSV(t *testing.T) {
	dir := t.TempDir()
	content := "id,name,category\n101,Go Book,Books\n102,Lamp,Home\n,skipped,Home\n"
	if err := os.WriteFile(filepath.Join(dir, "products.csv"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile("products.csv", dir)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	products := c.Products()
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %v", products)
	}
	if products[0] != (Product{ID: "101", Category: "Books", Name: "Go Book"}) {
		t.Errorf("unexpected first product %+v", products[0])
	}
}

func TestLoadFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	if err := os.WriteFile(path, []byte(`[{"id": 5, "category": "Toys"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path, "")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.Len() != 1 || c.Categories()[0] != "Toys" {
		t.Errorf("unexpected catalog %v %v", c.Products(), c.Categories())
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		os.WriteFile(p, []byte(content), 0644)
		return p
	}

	cases := map[string]string{
		"unsupported": write("products.txt", "1"),
		"header only": write("header.csv", "id,name\n"),
		"no id":       write("noid.csv", "name\nLamp\n"),
		"empty json":  write("empty.json", "[]"),
		"missing":     filepath.Join(dir, "missing.csv"),
	}
	for name, path := range cases {
		if _, err := LoadFile(path, ""); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
