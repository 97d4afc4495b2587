// Package cart holds the shopper's cart and wishlist in memory. Both are sets
// of products keyed by ID; presence is boolean and there are no quantities.
package cart

import (
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/KoduruNani/Flipkart-2/products"
)

// Listener is notified after every state change.
type Listener func()

// Store is safe for concurrent use. Mutations are visible to every reader as
// soon as the call returns.
type Store struct {
	mu        sync.RWMutex
	cart      []products.Product
	wishlist  []products.Product
	listeners map[int]Listener
	nextID    int
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// AddToCart adds p unless a product with the same ID is already present.
func (s *Store) AddToCart(p products.Product) {
	s.mutate(func() bool {
		var added bool
		s.cart, added = add(s.cart, p)
		return added
	})
}

// RemoveFromCart removes the product with id if present.
func (s *Store) RemoveFromCart(id int) {
	s.mutate(func() bool {
		var removed bool
		s.cart, removed = remove(s.cart, id)
		return removed
	})
}

// AddToWishlist adds p unless a product with the same ID is already present.
func (s *Store) AddToWishlist(p products.Product) {
	s.mutate(func() bool {
		var added bool
		s.wishlist, added = add(s.wishlist, p)
		return added
	})
}

// RemoveFromWishlist removes the product with id if present.
func (s *Store) RemoveFromWishlist(id int) {
	s.mutate(func() bool {
		var removed bool
		s.wishlist, removed = remove(s.wishlist, id)
		return removed
	})
}

// MoveWishlistItemToCart copies the wishlisted product with id into the cart.
// The wishlist keeps the item. It reports whether the product is in the cart
// afterwards; false means id is not on the wishlist.
func (s *Store) MoveWishlistItemToCart(id int) bool {
	inCart := false
	s.mutate(func() bool {
		i := indexOf(s.wishlist, id)
		if i < 0 {
			return false
		}
		var added bool
		s.cart, added = add(s.cart, s.wishlist[i])
		inCart = true
		return added
	})
	return inCart
}

// Cart returns the cart contents in insertion order.
func (s *Store) Cart() []products.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cart)
}

// Wishlist returns the wishlist contents in insertion order.
func (s *Store) Wishlist() []products.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.wishlist)
}

func (s *Store) InCart(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.cart, id) >= 0
}

func (s *Store) InWishlist(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.wishlist, id) >= 0
}

// CartTotal sums the prices of the products in the cart.
func (s *Store) CartTotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, p := range s.cart {
		total = total.Add(p.Price)
	}
	return total
}

// Reset empties both sets.
func (s *Store) Reset() {
	s.mutate(func() bool {
		changed := len(s.cart) > 0 || len(s.wishlist) > 0
		s.cart, s.wishlist = nil, nil
		return changed
	})
}

// Subscribe registers fn and returns a function that removes it. Listeners
// run synchronously on the mutating goroutine, after the lock is released.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// mutate applies change under the write lock and notifies listeners when it
// reports a change.
func (s *Store) mutate(change func() bool) {
	s.mu.Lock()
	changed := change()
	var notify []Listener
	if changed {
		notify = make([]Listener, 0, len(s.listeners))
		for _, id := range s.sortedListenerIDs() {
			notify = append(notify, s.listeners[id])
		}
	}
	s.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

func (s *Store) sortedListenerIDs() []int {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func add(items []products.Product, p products.Product) ([]products.Product, bool) {
	if indexOf(items, p.ID) >= 0 {
		return items, false
	}
	return append(items, p), true
}

func remove(items []products.Product, id int) ([]products.Product, bool) {
	i := indexOf(items, id)
	if i < 0 {
		return items, false
	}
	return slices.Delete(items, i, i+1), true
}

func indexOf(items []products.Product, id int) int {
	return slices.IndexFunc(items, func(p products.Product) bool { return p.ID == id })
}
