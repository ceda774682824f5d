package action

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"trafficgen/internal/core"
	"trafficgen/internal/shop"
)

// CartItem is one line of the cart as returned by the cart view.
type CartItem struct {
	ProductID string
	Quantity  int
}

// ParseCart reads cart lines from a bare array or from an object holding
// them under "cart_items" or "items". Missing quantities count as 1;
// lines with a zero or negative quantity are skipped.
func ParseCart(body []byte) ([]CartItem, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(body)
	list := root
	if root.IsObject() {
		list = root.Get("cart_items")
		if !list.Exists() {
			list = root.Get("items")
		}
	}
	if list.Exists() && !list.IsArray() {
		return nil, fmt.Errorf("cart items are not an array")
	}

	var items []CartItem
	list.ForEach(func(_, v gjson.Result) bool {
		id := v.Get("product_id")
		if !id.Exists() {
			id = v.Get("id")
		}
		if !id.Exists() || id.String() == "" {
			return true
		}
		qty := 1
		if q := v.Get("quantity"); q.Exists() {
			if q.Int() <= 0 {
				return true
			}
			qty = int(q.Int())
		}
		items = append(items, CartItem{ProductID: id.String(), Quantity: qty})
		return true
	})
	return items, nil
}

// ViewCart fetches the cart and records the status code only.
func (e *Executor) ViewCart(ctx context.Context, a *Actor) core.Outcome {
	return e.view(ctx, a, core.KindAuthAction, "view_cart", nil, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.Get(ctx, shop.CartView, nil)
	})
}

func (e *Executor) ViewCheckoutHistory(ctx context.Context, a *Actor) core.Outcome {
	return e.view(ctx, a, core.KindAuthAction, "view_checkout_history", nil, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.Get(ctx, shop.CheckoutHistory, nil)
	})
}

// AddToCart adds 1..max_add_quantity of a preferred product.
func (e *Executor) AddToCart(ctx context.Context, a *Actor) core.Outcome {
	pid := e.preferredProduct(a)
	qty := between(a.Rand, 1, e.maxQty)

	_, o := e.send(ctx, a, any2xx, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.PostForm(ctx, shop.CartAdd, url.Values{"id": {pid}, "quantity": {strconv.Itoa(qty)}})
	})
	e.report(a, core.KindAuthAction, o, map[string]any{"action": "add_to_cart", "product_id": pid, "quantity": qty})
	return o
}

// RemoveFromCart looks the cart up first and reports that lookup. When the
// lookup fails or the cart is empty nothing else happens; otherwise a random
// line loses between 1 and all of its quantity, reported as a second event.
func (e *Executor) RemoveFromCart(ctx context.Context, a *Actor) core.Outcome {
	resp, lookup := e.send(ctx, a, any2xx, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.Get(ctx, shop.CartView, nil)
	})

	var items []CartItem
	if lookup.OK() {
		var err error
		if items, err = ParseCart(resp.Body); err != nil {
			lookup.Status = core.StatusException
			lookup.Err = fmt.Errorf("parsing cart: %w", err)
		}
	}
	e.report(a, core.KindAuthAction, lookup, map[string]any{"action": "view_cart_for_remove", "items": len(items)})

	if !lookup.OK() {
		return lookup
	}
	if len(items) == 0 {
		return skipped()
	}

	item := items[a.Rand.Intn(len(items))]
	qty := between(a.Rand, 1, item.Quantity)

	_, o := e.send(ctx, a, any2xx, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.PostForm(ctx, shop.CartRemove, url.Values{"product_id": {item.ProductID}, "quantity": {strconv.Itoa(qty)}})
	})
	e.report(a, core.KindAuthAction, o, map[string]any{"action": "remove_from_cart", "product_id": item.ProductID, "quantity": qty})
	return o
}

// Checkout places an order for whatever the cart holds.
func (e *Executor) Checkout(ctx context.Context, a *Actor) core.Outcome {
	_, o := e.send(ctx, a, any2xx, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.PostForm(ctx, shop.Checkout, nil)
	})
	e.report(a, core.KindAuthAction, o, map[string]any{"action": "checkout"})
	return o
}

// AddReview rates a preferred product 1..max_rating.
func (e *Executor) AddReview(ctx context.Context, a *Actor) core.Outcome {
	pid := e.preferredProduct(a)
	rating := between(a.Rand, 1, e.maxRating)

	_, o := e.send(ctx, a, any2xx, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.PostForm(ctx, shop.AddReview, url.Values{"product_id": {pid}, "rating": {strconv.Itoa(rating)}})
	})
	e.report(a, core.KindAuthAction, o, map[string]any{"action": "add_review", "product_id": pid, "rating": rating})
	return o
}
