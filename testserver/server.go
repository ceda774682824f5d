// Package testserver provides an in-memory e-commerce shop that speaks the
// same HTTP API the traffic generator drives. It is meant for local runs and
// end-to-end tests, not for realism.
package testserver

import (
	"fmt"
	"math/rand"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/goccy/go-json"
)

// SessionCookie is the name of the cookie set by /login.
const SessionCookie = "session"

// Categories served by the shop, in listing order.
var Categories = []string{"Fashion", "Beauty", "Home", "Health", "Electronics", "Gaming", "Sports", "Books"}

// Product is one catalog entry.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

type cartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type order struct {
	OrderID  string     `json:"order_id"`
	Items    []cartItem `json:"items"`
	Total    float64    `json:"total"`
	PlacedAt time.Time  `json:"placed_at"`
}

type user struct {
	ID     string
	Name   string
	Email  string
	Gender string
	Age    int
}

// Options tunes the server. The zero value serves every request normally.
type Options struct {
	// Seed drives product names and prices. Zero picks a random catalog.
	Seed uint64
	// ProductsPerCategory defaults to 3.
	ProductsPerCategory int
	// FailRate is the fraction of requests, 0 to 1, answered with 503.
	FailRate float64
	// Latency is added before every response.
	Latency time.Duration
	// WrapProducts serves /products as {"products": [...]} instead of a bare array.
	WrapProducts bool
}

// Server is the in-memory shop.
type Server struct {
	mux      *http.ServeMux
	opts     Options
	products []Product
	byID     map[string]Product
	tokenSeq atomic.Int64
	orderSeq atomic.Int64

	mu       sync.Mutex
	rng      *rand.Rand
	users    map[string]user
	sessions map[string]string
	carts    map[string]map[string]int
	orders   map[string][]order
	reviews  map[string]int
	hits     map[string]int
}

// NewServer creates a shop with default options.
func NewServer() *Server {
	return NewServerWithOptions(Options{})
}

// NewServerWithOptions creates a shop with a freshly generated catalog.
func NewServerWithOptions(opts Options) *Server {
	if opts.ProductsPerCategory <= 0 {
		opts.ProductsPerCategory = 3
	}
	s := &Server{
		mux:      http.NewServeMux(),
		opts:     opts,
		byID:     make(map[string]Product),
		rng:      rand.New(rand.NewSource(int64(opts.Seed))),
		users:    make(map[string]user),
		sessions: make(map[string]string),
		carts:    make(map[string]map[string]int),
		orders:   make(map[string][]order),
		reviews:  make(map[string]int),
		hits:     make(map[string]int),
	}
	s.seedCatalog()
	s.registerHandlers()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serve)
}

// Products returns a copy of the catalog.
func (s *Server) Products() []Product {
	return slices.Clone(s.products)
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Users returns the number of registered accounts.
func (s *Server) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Reviews returns how many reviews productID received.
func (s *Server) Reviews(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviews[productID]
}

func (s *Server) seedCatalog() {
	f := gofakeit.New(s.opts.Seed)
	next := 101
	for _, cat := range Categories {
		for i := 0; i < s.opts.ProductsPerCategory; i++ {
			p := Product{
				ID:          strconv.Itoa(next),
				Name:        f.ProductName(),
				Category:    cat,
				Price:       f.Price(5, 500),
				Description: f.ProductDescription(),
			}
			s.products = append(s.products, p)
			s.byID[p.ID] = p
			next++
		}
	}
}

func (s *Server) registerHandlers() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("POST /add_user", s.handleAddUser)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /logout", s.handleLogout)
	s.mux.HandleFunc("POST /delete_user", s.handleDeleteUser)
	s.mux.HandleFunc("GET /products", s.handleProducts)
	s.mux.HandleFunc("GET /product", s.handleProduct)
	s.mux.HandleFunc("GET /categories", s.handleCategories)
	s.mux.HandleFunc("GET /category", s.handleCategory)
	s.mux.HandleFunc("GET /search", s.handleSearch)
	s.mux.HandleFunc("GET /cart/view", s.withUser(s.handleCartView))
	s.mux.HandleFunc("POST /cart/add", s.withUser(s.handleCartAdd))
	s.mux.HandleFunc("POST /cart/remove", s.withUser(s.handleCartRemove))
	s.mux.HandleFunc("GET /checkout_history", s.withUser(s.handleCheckoutHistory))
	s.mux.HandleFunc("POST /checkout", s.withUser(s.handleCheckout))
	s.mux.HandleFunc("POST /add_review", s.withUser(s.handleAddReview))
	s.mux.HandleFunc("GET /error", s.handleError)
}

// serve counts the request and applies latency and failure injection.
func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	fail := s.opts.FailRate > 0 && s.rng.Float64() < s.opts.FailRate
	s.mu.Unlock()

	if s.opts.Latency > 0 {
		select {
		case <-time.After(s.opts.Latency):
		case <-r.Context().Done():
			return
		}
	}
	if fail {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "injected failure"})
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "welcome to the shop",
		"products":   len(s.products),
		"categories": len(Categories),
	})
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("user_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	age, err := strconv.Atoi(r.FormValue("age"))
	if err != nil || age <= 0 {
		writeError(w, http.StatusBadRequest, "age must be a positive integer")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[id]; exists {
		writeError(w, http.StatusConflict, "user already exists")
		return
	}
	s.users[id] = user{
		ID:     id,
		Name:   r.FormValue("name"),
		Email:  r.FormValue("email"),
		Gender: r.FormValue("gender"),
		Age:    age,
	}
	writeJSON(w, http.StatusCreated, map[string]string{"user_id": id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("user_id")

	s.mu.Lock()
	_, known := s.users[id]
	var token string
	if known {
		token = fmt.Sprintf("sess-%d-%s", s.tokenSeq.Add(1), id)
		s.sessions[token] = id
	}
	s.mu.Unlock()

	if !known {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]string{"user_id": id})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("user_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		writeError(w, http.StatusNotFound, "unknown user")
		return
	}
	delete(s.users, id)
	delete(s.carts, id)
	delete(s.orders, id)
	for token, owner := range s.sessions {
		if owner == id {
			delete(s.sessions, token)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	if s.opts.WrapProducts {
		writeJSON(w, http.StatusOK, map[string]any{"products": s.products})
		return
	}
	writeJSON(w, http.StatusOK, s.products)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.byID[r.URL.Query().Get("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Categories)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if !slices.Contains(Categories, name) {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	var out []Product
	for _, p := range s.products {
		if p.Category == name {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("query")))
	out := []Product{}
	if q != "" {
		for _, p := range s.products {
			if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Category), q) {
				out = append(out, p)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "results": out})
}

// withUser resolves the session cookie and rejects anonymous callers with 401.
func (s *Server) withUser(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		s.mu.Lock()
		id, ok := s.sessions[c.Value]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		next(w, r, id)
	}
}

func (s *Server) handleCartView(w http.ResponseWriter, r *http.Request, uid string) {
	s.mu.Lock()
	items := s.cartItems(uid)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"cart_items": items})
}

// cartItems returns the cart sorted by product id. Callers hold s.mu.
func (s *Server) cartItems(uid string) []cartItem {
	items := []cartItem{}
	for pid, qty := range s.carts[uid] {
		items = append(items, cartItem{ProductID: pid, Quantity: qty})
	}
	slices.SortFunc(items, func(a, b cartItem) int { return strings.Compare(a.ProductID, b.ProductID) })
	return items
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request, uid string) {
	pid := r.FormValue("id")
	if _, ok := s.byID[pid]; !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	qty, ok := quantity(r.FormValue("quantity"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[uid]
	if cart == nil {
		cart = make(map[string]int)
		s.carts[uid] = cart
	}
	cart[pid] += qty
	writeJSON(w, http.StatusOK, map[string]any{"cart_items": s.cartItems(uid)})
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request, uid string) {
	pid := r.FormValue("product_id")
	qty, ok := quantity(r.FormValue("quantity"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[uid]
	have, inCart := cart[pid]
	if !inCart {
		writeError(w, http.StatusNotFound, "product not in cart")
		return
	}
	if qty >= have {
		delete(cart, pid)
	} else {
		cart[pid] = have - qty
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart_items": s.cartItems(uid)})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.cartItems(uid)
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}
	o := order{
		OrderID:  fmt.Sprintf("order-%d", s.orderSeq.Add(1)),
		Items:    items,
		PlacedAt: time.Now().UTC(),
	}
	for _, it := range items {
		o.Total += s.byID[it.ProductID].Price * float64(it.Quantity)
	}
	s.orders[uid] = append(s.orders[uid], o)
	delete(s.carts, uid)
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleCheckoutHistory(w http.ResponseWriter, r *http.Request, uid string) {
	s.mu.Lock()
	orders := slices.Clone(s.orders[uid])
	s.mu.Unlock()
	if orders == nil {
		orders = []order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request, uid string) {
	pid := r.FormValue("product_id")
	if _, ok := s.byID[pid]; !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	rating, err := strconv.Atoi(r.FormValue("rating"))
	if err != nil || rating < 1 || rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	s.mu.Lock()
	s.reviews[pid]++
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"product_id": pid, "rating": rating, "user_id": uid})
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusInternalServerError, "something went wrong")
}

// quantity parses a positive count; an empty value means 1.
func quantity(v string) (int, bool) {
	if v == "" {
		return 1, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil && n > 0
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
