// Package state names the states of the user lifecycle machine and its two
// nested activity machines.
package state

// Top is a top-level lifecycle state.
type Top string

const (
	AnonNotRegistered Top = "anon_not_registered"
	AnonRegistered    Top = "anon_registered"
	LoggedIn          Top = "logged_in"
	LoggedOut         Top = "logged_out"
	Unregistered      Top = "unregistered"
	Done              Top = "done"
)

// AllTop lists every top-level state.
var AllTop = []Top{AnonNotRegistered, AnonRegistered, LoggedIn, LoggedOut, Unregistered, Done}

func (s Top) Valid() bool    { return contains(AllTop, s) }
func (s Top) String() string { return string(s) }

// Anonymous reports whether the user is browsing without a session.
func (s Top) Anonymous() bool {
	return s == AnonNotRegistered || s == AnonRegistered
}

// AnonSub is a state of the anonymous browsing machine.
type AnonSub string

const (
	AnonInitial      AnonSub = "initial"
	AnonMain         AnonSub = "main"
	AnonProducts     AnonSub = "products"
	AnonViewProduct  AnonSub = "view_product"
	AnonCategories   AnonSub = "categories"
	AnonCategoryList AnonSub = "category_list"
	AnonSearch       AnonSub = "search"
	AnonError        AnonSub = "error"
	AnonDone         AnonSub = "done"
)

var AllAnon = []AnonSub{
	AnonInitial, AnonMain, AnonProducts, AnonViewProduct, AnonCategories,
	AnonCategoryList, AnonSearch, AnonError, AnonDone,
}

func (s AnonSub) Valid() bool    { return contains(AllAnon, s) }
func (s AnonSub) String() string { return string(s) }

// AuthSub is a state of the authenticated activity machine.
type AuthSub string

const (
	AuthInitial         AuthSub = "initial"
	AuthViewCart        AuthSub = "view_cart"
	AuthCheckoutHistory AuthSub = "checkout_history"
	AuthCartAdd         AuthSub = "cart_add"
	AuthCartRemove      AuthSub = "cart_remove"
	AuthCheckout        AuthSub = "checkout"
	AuthAddReview       AuthSub = "add_review"
	AuthError           AuthSub = "error"
	AuthDone            AuthSub = "done"
)

var AllAuth = []AuthSub{
	AuthInitial, AuthViewCart, AuthCheckoutHistory, AuthCartAdd, AuthCartRemove,
	AuthCheckout, AuthAddReview, AuthError, AuthDone,
}

func (s AuthSub) Valid() bool    { return contains(AllAuth, s) }
func (s AuthSub) String() string { return string(s) }

func contains[S comparable](all []S, s S) bool {
	for _, v := range all {
		if v == s {
			return true
		}
	}
	return false
}
