// Package catalog holds the product and category lists fetched once before
// the simulation starts. A Catalog is immutable and shared by all sessions.
package catalog

import (
	"errors"
	"math/rand"
	"slices"
)

// ErrEmpty is returned when a catalog source yields no products.
var ErrEmpty = errors.New("catalog: no products")

// Product is one item of the shop's catalog. IDs are kept as strings
// whether the API sends numbers or strings.
type Product struct {
	ID       string
	Category string
	Name     string
}

// Catalog is a read-only view over products and categories.
type Catalog struct {
	products   []Product
	categories []string
	byCategory map[string][]Product
}

// New builds a catalog. Categories referenced by products but missing from
// categories are appended, so category browsing always has something to pick.
func New(products []Product, categories []string) *Catalog {
	c := &Catalog{
		products:   slices.Clone(products),
		byCategory: make(map[string][]Product),
	}

	seen := make(map[string]bool)
	for _, name := range categories {
		if name != "" && !seen[name] {
			seen[name] = true
			c.categories = append(c.categories, name)
		}
	}
	for _, p := range c.products {
		if p.Category == "" {
			continue
		}
		c.byCategory[p.Category] = append(c.byCategory[p.Category], p)
		if !seen[p.Category] {
			seen[p.Category] = true
			c.categories = append(c.categories, p.Category)
		}
	}
	return c
}

func (c *Catalog) Len() int            { return len(c.products) }
func (c *Catalog) Empty() bool         { return len(c.products) == 0 }
func (c *Catalog) Products() []Product { return slices.Clone(c.products) }
func (c *Catalog) Categories() []string {
	return slices.Clone(c.categories)
}

// PickProduct returns a uniformly random product, or false when empty.
func (c *Catalog) PickProduct(r *rand.Rand) (Product, bool) {
	if len(c.products) == 0 {
		return Product{}, false
	}
	return c.products[r.Intn(len(c.products))], true
}

// PickCategory returns a uniformly random category name, or false when empty.
func (c *Catalog) PickCategory(r *rand.Rand) (string, bool) {
	if len(c.categories) == 0 {
		return "", false
	}
	return c.categories[r.Intn(len(c.categories))], true
}

// PickPreferred picks uniformly among products in any of preferred.
// A category listed twice is still weighted once.
// With no match it falls back to the whole catalog, and with an empty
// catalog it returns fallbackID.
func (c *Catalog) PickPreferred(r *rand.Rand, preferred []string, fallbackID string) string {
	preferred = uniqueCategories(preferred)
	var n int
	for _, cat := range preferred {
		n += len(c.byCategory[cat])
	}
	if n > 0 {
		i := r.Intn(n)
		for _, cat := range preferred {
			items := c.byCategory[cat]
			if i < len(items) {
				return items[i].ID
			}
			i -= len(items)
		}
	}

	if p, ok := c.PickProduct(r); ok {
		return p.ID
	}
	return fallbackID
}

func uniqueCategories(cats []string) []string {
	seen := make(map[string]bool, len(cats))
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
