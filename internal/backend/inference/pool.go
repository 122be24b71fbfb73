package inference

import "context"

// Pool hands out exclusive use of a fixed set of items, such as model
// interpreters that must not be shared between goroutines.
type Pool[T any] struct {
	items chan T
}

func NewPool[T any](items ...T) *Pool[T] {
	p := &Pool[T]{items: make(chan T, len(items))}
	for _, item := range items {
		p.items <- item
	}
	return p
}

// Acquire blocks until an item is free or ctx is done
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	select {
	case item := <-p.items:
		return item, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Release returns an item taken with Acquire
func (p *Pool[T]) Release(item T) {
	p.items <- item
}
