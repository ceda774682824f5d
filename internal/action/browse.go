package action

import (
	"context"
	"net/url"

	"trafficgen/internal/core"
	"trafficgen/internal/shop"
)

// view performs a read-only GET whose status code is recorded without judgement.
func (e *Executor) view(ctx context.Context, a *Actor, kind, name string, details map[string]any, call func(context.Context) (*shop.Response, error)) core.Outcome {
	_, o := e.send(ctx, a, recorded, call)
	if details == nil {
		details = make(map[string]any, 5)
	}
	details["action"] = name
	e.report(a, kind, o, details)
	return o
}

func skipped() core.Outcome {
	return core.Outcome{Status: core.StatusSkipped}
}

func (e *Executor) MainPage(ctx context.Context, a *Actor) core.Outcome {
	return e.view(ctx, a, core.KindAnonAction, "access_main_page", nil, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.Root(ctx)
	})
}

func (e *Executor) ViewProducts(ctx context.Context, a *Actor) core.Outcome {
	return e.view(ctx, a, core.KindAnonAction, "view_products", nil, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.Get(ctx, shop.Products, nil)
	})
}

// ViewProduct opens a random product page. Skipped when the catalog is empty.
func (e *Executor) ViewProduct(ctx context.Context, a *Actor) core.Outcome {
	p, ok := e.catalog.PickProduct(a.Rand)
	if !ok {
		return skipped()
	}
	return e.view(ctx, a, core.KindAnonAction, "view_product_detail", map[string]any{"product_id": p.ID},
		func(ctx context.Context) (*shop.Response, error) {
			return a.Client.Get(ctx, shop.ProductDetail, url.Values{"id": {p.ID}})
		})
}

func (e *Executor) ViewCategories(ctx context.Context, a *Actor) core.Outcome {
	return e.view(ctx, a, core.KindAnonAction, "view_categories", nil, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.Get(ctx, shop.Categories, nil)
	})
}

// ViewCategory lists one random category. Skipped when no categories are cached.
func (e *Executor) ViewCategory(ctx context.Context, a *Actor) core.Outcome {
	name, ok := e.catalog.PickCategory(a.Rand)
	if !ok {
		return skipped()
	}
	return e.view(ctx, a, core.KindAnonAction, "view_category", map[string]any{"category_name": name},
		func(ctx context.Context) (*shop.Response, error) {
			return a.Client.Get(ctx, shop.Category, url.Values{"name": {name}})
		})
}

// Search queries a random configured keyword. Skipped when none are configured.
func (e *Executor) Search(ctx context.Context, a *Actor) core.Outcome {
	if len(e.keywords) == 0 {
		return skipped()
	}
	q := e.keywords[a.Rand.Intn(len(e.keywords))]
	return e.view(ctx, a, core.KindAnonAction, "search", map[string]any{"query": q},
		func(ctx context.Context) (*shop.Response, error) {
			return a.Client.Get(ctx, shop.Search, url.Values{"query": {q}})
		})
}

// TriggerError requests the error page, reported under the caller's scope.
func (e *Executor) TriggerError(ctx context.Context, a *Actor, scope Scope) core.Outcome {
	return e.view(ctx, a, scope.kind(), "trigger_error", nil, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.Get(ctx, shop.ErrorPage, nil)
	})
}
