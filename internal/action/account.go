package action

import (
	"context"
	"net/url"
	"strconv"

	"trafficgen/internal/core"
	"trafficgen/internal/shop"
)

// Register creates the account. Only HTTP 201 counts as success.
func (e *Executor) Register(ctx context.Context, a *Actor) core.Outcome {
	id := a.Identity
	form := url.Values{
		"user_id": {id.ID},
		"name":    {id.Name},
		"email":   {id.Email},
		"gender":  {id.Gender},
		"age":     {strconv.Itoa(id.Age)},
	}
	for k, v := range id.Extra {
		if _, taken := form[k]; !taken {
			form.Set(k, v)
		}
	}

	_, o := e.send(ctx, a, exactly(201), func(ctx context.Context) (*shop.Response, error) {
		return a.Client.PostForm(ctx, shop.AddUser, form)
	})
	e.report(a, core.KindRegister, o, nil)
	return o
}

// Login opens a session; the cookie lands in the actor's client jar.
func (e *Executor) Login(ctx context.Context, a *Actor) core.Outcome {
	_, o := e.send(ctx, a, any2xx, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.PostForm(ctx, shop.Login, url.Values{"user_id": {a.Identity.ID}})
	})
	e.report(a, core.KindLogin, o, nil)
	return o
}

// Logout ends the shop session. Any 2xx counts as success.
func (e *Executor) Logout(ctx context.Context, a *Actor) core.Outcome {
	_, o := e.send(ctx, a, any2xx, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.PostForm(ctx, shop.Logout, nil)
	})
	e.report(a, core.KindLogout, o, nil)
	return o
}

// DeleteAccount removes the user; it is used from both logged-in and logged-out states.
func (e *Executor) DeleteAccount(ctx context.Context, a *Actor) core.Outcome {
	_, o := e.send(ctx, a, any2xx, func(ctx context.Context) (*shop.Response, error) {
		return a.Client.PostForm(ctx, shop.DeleteUser, url.Values{"user_id": {a.Identity.ID}})
	})
	e.report(a, core.KindDeleteUser, o, nil)
	return o
}
