package shop

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Endpoint names understood by the client. Paths can be overridden in config.
const (
	AddUser         = "add_user"
	Login           = "login"
	Logout          = "logout"
	DeleteUser      = "delete_user"
	Products        = "products"
	ProductDetail   = "product_detail"
	Categories      = "categories"
	Category        = "category"
	Search          = "search"
	CartView        = "cart_view"
	CartAdd         = "cart_add"
	CartRemove      = "cart_remove"
	CheckoutHistory = "checkout_history"
	Checkout        = "checkout"
	AddReview       = "add_review"
	ErrorPage       = "error_page"
)

// DefaultPaths maps every endpoint name to its default path.
var DefaultPaths = map[string]string{
	AddUser:         "/add_user",
	Login:           "/login",
	Logout:          "/logout",
	DeleteUser:      "/delete_user",
	Products:        "/products",
	ProductDetail:   "/product",
	Categories:      "/categories",
	Category:        "/category",
	Search:          "/search",
	CartView:        "/cart/view",
	CartAdd:         "/cart/add",
	CartRemove:      "/cart/remove",
	CheckoutHistory: "/checkout_history",
	Checkout:        "/checkout",
	AddReview:       "/add_review",
	ErrorPage:       "/error",
}

// ResolveEndpoints merges overrides into DefaultPaths.
// Unknown names are rejected so a typo in config does not go unnoticed.
func ResolveEndpoints(overrides map[string]string) (map[string]string, error) {
	resolved := maps.Clone(DefaultPaths)
	var unknown []string
	for name, path := range overrides {
		if _, ok := DefaultPaths[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		resolved[name] = path
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, fmt.Errorf("unknown endpoint names: %s", strings.Join(unknown, ", "))
	}
	return resolved, nil
}
