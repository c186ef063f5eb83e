package metrics

import "modbot/internal/app/ports"

type countingPersister[T any] struct {
	inner ports.Persister[T]
	store string
}

// CountFailures wraps p so every failed Save increments PersistFailures.
func CountFailures[T any](p ports.Persister[T], store string) ports.Persister[T] {
	PersistFailures.WithLabelValues(store).Add(0)
	return &countingPersister[T]{inner: p, store: store}
}

func (c *countingPersister[T]) Load() (T, error) {
	return c.inner.Load()
}

func (c *countingPersister[T]) Save(val T) error {
	if err := c.inner.Save(val); err != nil {
		PersistFailures.WithLabelValues(c.store).Inc()
		return err
	}
	return nil
}
