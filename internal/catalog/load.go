package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"trafficgen/internal/shop"
)

// Getter is the part of shop.Client the loader needs.
type Getter interface {
	Get(ctx context.Context, endpoint string, query url.Values) (*shop.Response, error)
}

// Load fetches products and categories from the API.
// A failed category fetch is not fatal: categories are then derived from
// the products. A failed or empty product fetch returns an error.
func Load(ctx context.Context, g Getter) (*Catalog, error) {
	products, err := fetch(ctx, g, shop.Products, ParseProducts)
	if err != nil {
		return nil, fmt.Errorf("fetching products: %w", err)
	}
	if len(products) == 0 {
		return nil, ErrEmpty
	}

	categories, err := fetch(ctx, g, shop.Categories, ParseCategories)
	if err != nil {
		return New(products, nil), fmt.Errorf("fetching categories: %w", err)
	}
	return New(products, categories), nil
}

func fetch[T any](ctx context.Context, g Getter, endpoint string, parse func([]byte) ([]T, error)) ([]T, error) {
	resp, err := g.Get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if !resp.Is2xx() {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return parse(resp.Body)
}

// LoadFile reads products from a CSV (header row with id, category, name)
// or JSON file. Relative paths resolve against baseDir.
func LoadFile(path, baseDir string) (*Catalog, error) {
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	var (
		products []Product
		err      error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		products, err = loadCSV(path)
	case ".json":
		var data []byte
		if data, err = os.ReadFile(path); err == nil {
			products, err = ParseProducts(data)
		}
	default:
		return nil, fmt.Errorf("unsupported seed file format %q (use .csv or .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("loading %s: %w", path, ErrEmpty)
	}
	return New(products, nil), nil
}

func loadCSV(path string) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, errors.New("CSV must have header row and at least one data row")
	}

	col := map[string]int{"id": -1, "category": -1, "name": -1}
	for i, h := range records[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, ok := col[h]; ok {
			col[h] = i
		}
	}
	if col["id"] < 0 {
		return nil, errors.New("CSV header must contain an id column")
	}

	cell := func(rec []string, name string) string {
		i := col[name]
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	products := make([]Product, 0, len(records)-1)
	for _, rec := range records[1:] {
		id := cell(rec, "id")
		if id == "" {
			continue
		}
		products = append(products, Product{ID: id, Category: cell(rec, "category"), Name: cell(rec, "name")})
	}
	return products, nil
}
