package service

import "sync"

// Emitter fans storage changes out to the subscribers of a session within
// this process. Subscribers are called outside the emitter lock, in no
// particular order.
type Emitter struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(key string)
}

func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[string]map[int]func(key string))}
}

func (e *Emitter) Subscribe(session string, fn func(key string)) (cancel func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	if e.subs[session] == nil {
		e.subs[session] = make(map[int]func(key string))
	}
	e.subs[session][id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.subs[session], id)
			if len(e.subs[session]) == 0 {
				delete(e.subs, session)
			}
		})
	}
}

func (e *Emitter) Notify(session, key string) {
	e.mu.RLock()
	fns := make([]func(string), 0, len(e.subs[session]))
	for _, fn := range e.subs[session] {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(key)
	}
}

func (e *Emitter) Subscribers(session string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs[session])
}
