package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// FakeRating mirrors the rating object of the storefront API.
type FakeRating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// FakeProduct is the wire shape served by FakeAPI.
type FakeProduct struct {
	ID          int         `json:"id"`
	Title       string      `json:"title"`
	Price       float64     `json:"price"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Image       string      `json:"image"`
	Rating      *FakeRating `json:"rating,omitempty"`
	Deleted     bool        `json:"deleted,omitempty"`
}

// FakeUser is the wire shape of a storefront account.
type FakeUser struct {
	ID       int               `json:"id"`
	Email    string            `json:"email"`
	Username string            `json:"username"`
	Password string            `json:"password,omitempty"`
	Name     map[string]string `json:"name,omitempty"`
	Phone    string            `json:"phone,omitempty"`
}

// FakeAPI emulates the storefront REST backend over httptest. It behaves like
// the public demo API: unknown product ids answer 200 with an empty body.
type FakeAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	products []FakeProduct
	users    []FakeUser
	hits     map[string]int
	latency  time.Duration
	failCode int
	apiKey   string
}

// NewFakeAPI starts a FakeAPI seeded from the embedded fixtures. The server
// is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{hits: make(map[string]int)}
	LoadFixtureJSON(t, "products.json", &f.products)
	LoadFixtureJSON(t, "users.json", &f.users)

	f.server = httptest.NewServer(f.routes())
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the fake backend.
func (f *FakeAPI) URL() string { return f.server.URL }

// SetLatency delays every response by d.
func (f *FakeAPI) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

// FailWith answers every request with status until FailWith(0) is called.
func (f *FakeAPI) FailWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCode = status
}

// SetAPIKey sets the bearer token accepted by the /users routes.
func (f *FakeAPI) SetAPIKey(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKey = key
}

// Hits returns how many requests matched route, e.g. "GET /products/{id}".
func (f *FakeAPI) Hits(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

// TotalHits returns the number of requests served.
func (f *FakeAPI) TotalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.hits {
		total += n
	}
	return total
}

// ResetHits clears the hit counters.
func (f *FakeAPI) ResetHits() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = make(map[string]int)
}

// Product returns the stored product with id, including soft-deleted ones.
func (f *FakeAPI) Product(id int) (FakeProduct, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(id)
	if i < 0 {
		return FakeProduct{}, false
	}
	return f.products[i], true
}

func (f *FakeAPI) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(f.count)
	r.Use(f.inject)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", f.listProducts)
		r.Post("/", f.createProduct)
		r.Get("/categories", f.listCategories)
		r.Get("/category/{category}", f.listByCategory)
		r.Get("/{id}", f.getProduct)
		r.Put("/{id}", f.updateProduct)
		r.Patch("/{id}", f.patchProduct)
	})

	r.Post("/login", f.login)
	r.Post("/register", f.register)

	r.Route("/users/{id}", func(r chi.Router) {
		r.Use(f.requireBearer)
		r.Get("/", f.getUser)
		r.Put("/", f.updateUser)
		r.Delete("/", f.deleteUser)
	})

	return r
}

func (f *FakeAPI) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = strings.TrimSuffix(rctx.RoutePattern(), "/")
		}
		f.mu.Lock()
		f.hits[r.Method+" "+pattern]++
		f.mu.Unlock()
	})
}

func (f *FakeAPI) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		latency, failCode := f.latency, f.failCode
		f.mu.Unlock()

		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}
		if failCode != 0 {
			writeJSON(w, failCode, map[string]string{"message": http.StatusText(failCode)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		key := f.apiKey
		f.mu.Unlock()

		if key == "" || r.Header.Get("Authorization") != "Bearer "+key {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) listProducts(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	out := f.visible(func(FakeProduct) bool { return true })
	f.mu.Unlock()

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n < len(out) {
			out = out[:n]
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) listCategories(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, p := range f.visible(func(FakeProduct) bool { return true }) {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) listByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if unescaped, err := url.PathUnescape(category); err == nil {
		category = unescaped
	}

	f.mu.Lock()
	out := f.visible(func(p FakeProduct) bool { return p.Category == category })
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(id)
	if i < 0 || f.products[i].Deleted {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, f.products[i])
}

func (f *FakeAPI) createProduct(w http.ResponseWriter, r *http.Request) {
	var p FakeProduct
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	next := 0
	for _, existing := range f.products {
		if existing.ID > next {
			next = existing.ID
		}
	}
	p.ID = next + 1
	p.Deleted = false
	f.products = append(f.products, p)
	writeJSON(w, http.StatusOK, p)
}

func (f *FakeAPI) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p FakeProduct
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(id)
	if i < 0 || f.products[i].Deleted {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "product not found"})
		return
	}
	p.ID = id
	if p.Rating == nil {
		p.Rating = f.products[i].Rating
	}
	f.products[i] = p
	writeJSON(w, http.StatusOK, p)
}

func (f *FakeAPI) patchProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch struct {
		Deleted *bool `json:"deleted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexOf(id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "product not found"})
		return
	}
	if patch.Deleted != nil {
		f.products[i].Deleted = *patch.Deleted
	}
	writeJSON(w, http.StatusOK, f.products[i])
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == creds.Username && u.Password == creds.Password {
			writeJSON(w, http.StatusOK, map[string]string{"token": "token-" + strconv.Itoa(u.ID)})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "username or password is incorrect"})
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var u FakeUser
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "username already taken"})
			return
		}
	}
	u.ID = len(f.users) + 1
	f.users = append(f.users, u)
	u.Password = ""
	writeJSON(w, http.StatusOK, u)
}

func (f *FakeAPI) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.userIndex(id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "user not found"})
		return
	}
	u := f.users[i]
	u.Password = ""
	writeJSON(w, http.StatusOK, u)
}

func (f *FakeAPI) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch FakeUser
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.userIndex(id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "user not found"})
		return
	}
	u := &f.users[i]
	if patch.Email != "" {
		u.Email = patch.Email
	}
	if patch.Phone != "" {
		u.Phone = patch.Phone
	}
	if patch.Name != nil {
		u.Name = patch.Name
	}
	out := *u
	out.Password = ""
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.userIndex(id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "user not found"})
		return
	}
	u := f.users[i]
	f.users = append(f.users[:i], f.users[i+1:]...)
	u.Password = ""
	writeJSON(w, http.StatusOK, u)
}

// visible returns the non-deleted products matching keep. Callers hold mu.
func (f *FakeAPI) visible(keep func(FakeProduct) bool) []FakeProduct {
	out := []FakeProduct{}
	for _, p := range f.products {
		if !p.Deleted && keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (f *FakeAPI) indexOf(id int) int {
	for i, p := range f.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (f *FakeAPI) userIndex(id int) int {
	for i, u := range f.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
