// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"sync"
)

type handlerEntry struct {
	id  uint64
	key string
	h   interface{}
}

// handlerList is an ordered collection of handlers.
// Dispatch iterates over a snapshot taken when it starts, but a handler
// removed after the snapshot was taken is skipped, so once the function
// returned by add has returned the handler will not be called again.
// Handlers may add and remove handlers while they are being called.
type handlerList struct {
	mu      sync.Mutex
	nextID  uint64
	entries []handlerEntry
}

func (l *handlerList) add(key string, h interface{}) (remove func()) {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, handlerEntry{id: id, key: key, h: h})
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, e := range l.entries {
			if e.id == id {
				l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
				return
			}
		}
	}
}

// removeKey removes every handler registered under key.
func (l *handlerList) removeKey(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0:0]
	for _, e := range l.entries {
		if e.key != key {
			kept = append(kept, e)
		}
	}
	l.entries = kept
}

func (l *handlerList) live(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.id == id {
			return true
		}
	}
	return false
}

func (l *handlerList) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// each calls f for every handler registered under key (or every handler if
// match is nil) in registration order.
func (l *handlerList) each(match func(key string) bool, f func(h interface{})) {
	l.mu.Lock()
	snapshot := make([]handlerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if match == nil || match(e.key) {
			snapshot = append(snapshot, e)
		}
	}
	l.mu.Unlock()

	for _, e := range snapshot {
		if l.live(e.id) {
			f(e.h)
		}
	}
}

type pendingIQ struct {
	h       IQIDHandler
	context interface{}
}

// pendingTable tracks IQs that are awaiting a reply.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]pendingIQ
}

func (t *pendingTable) track(id string, h IQIDHandler, context interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries == nil {
		t.entries = make(map[string]pendingIQ)
	}
	t.entries[id] = pendingIQ{h: h, context: context}
}

// take removes and returns the entry for id.
func (t *pendingTable) take(id string) (pendingIQ, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	return p, ok
}

func (t *pendingTable) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

func (t *pendingTable) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
