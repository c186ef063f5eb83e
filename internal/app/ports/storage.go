package ports

type Persister[T any] interface {
	Load() (T, error)
	Save(val T) error
}
