package catalog

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// ParseProducts accepts either a bare JSON array of products or an object
// wrapping it under "products". Entries without an id are skipped.
func ParseProducts(body []byte) ([]Product, error) {
	list, err := unwrap(body, "products")
	if err != nil {
		return nil, err
	}

	var products []Product
	list.ForEach(func(_, item gjson.Result) bool {
		id := firstOf(item, "id", "product_id")
		if id == "" {
			return true
		}
		products = append(products, Product{
			ID:       id,
			Category: firstOf(item, "category", "category_name"),
			Name:     firstOf(item, "name", "title"),
		})
		return true
	})
	return products, nil
}

// ParseCategories accepts an array of names or of {"name": ...} objects,
// bare or wrapped under "categories".
func ParseCategories(body []byte) ([]string, error) {
	list, err := unwrap(body, "categories")
	if err != nil {
		return nil, err
	}

	var names []string
	list.ForEach(func(_, item gjson.Result) bool {
		name := item.String()
		if item.IsObject() {
			name = firstOf(item, "name", "category")
		}
		if name != "" {
			names = append(names, name)
		}
		return true
	})
	return names, nil
}

func unwrap(body []byte, key string) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(body)
	switch {
	case root.IsArray():
		return root, nil
	case root.IsObject():
		inner := root.Get(key)
		if inner.IsArray() {
			return inner, nil
		}
		if !inner.Exists() {
			return gjson.Result{}, nil
		}
		return gjson.Result{}, fmt.Errorf("%q is not an array", key)
	default:
		return gjson.Result{}, fmt.Errorf("expected array or object, got %s", root.Type)
	}
}

func firstOf(item gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() && v.Type != gjson.Null {
			return v.String()
		}
	}
	return ""
}
