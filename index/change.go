package index

import "sync"

// ChangeType identifies what happened to the index.
type ChangeType string

const (
	ChangeUpserted ChangeType = "upserted"
	ChangeDeleted  ChangeType = "deleted"
	ChangeCleared  ChangeType = "cleared"
)

// ChangeEvent describes one change. TypeID and Key are empty for
// ChangeCleared.
type ChangeEvent struct {
	Type   ChangeType
	TypeID string
	Key    string
}

// ChangeListener receives change events after they are committed.
type ChangeListener func(ChangeEvent)

type listeners struct {
	mu     sync.RWMutex
	nextID int
	fns    map[int]ChangeListener
}

func (l *listeners) add(fn ChangeListener) func() {
	if fn == nil {
		return func() {}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]ChangeListener)
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) emit(events ...ChangeEvent) {
	l.mu.RLock()
	fns := make([]ChangeListener, 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}
