package botlist

import (
	"modbot/internal/app/domain"
	"sync/atomic"
)

// Oracle answers membership queries against the suspected-bot list. Reads are
// lock-free; Replace swaps the whole set at once.
type Oracle struct {
	set atomic.Pointer[map[string]struct{}]
}

func New(names []string) *Oracle {
	o := &Oracle{}
	o.Replace(names)
	return o
}

func (o *Oracle) IsUntrustedBot(username string) bool {
	if username == "" {
		return false
	}

	_, ok := (*o.set.Load())[domain.Login(username)]
	return ok
}

func (o *Oracle) IsMember(username string) bool {
	return o.IsUntrustedBot(username)
}

func (o *Oracle) Replace(names []string) {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = domain.Login(n); n != "" {
			set[n] = struct{}{}
		}
	}
	o.set.Store(&set)
}

func (o *Oracle) Len() int {
	return len(*o.set.Load())
}
