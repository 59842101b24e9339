package ingest

import "sync"

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.mu.Lock()
	return func() {
		m.mu.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// pathSet tracks source paths currently owned by a worker.
type pathSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newPathSet() *pathSet {
	return &pathSet{paths: make(map[string]struct{})}
}

func (p *pathSet) TryAdd(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.paths[path]; busy {
		return false
	}
	p.paths[path] = struct{}{}
	return true
}

func (p *pathSet) Remove(path string) {
	p.mu.Lock()
	delete(p.paths, path)
	p.mu.Unlock()
}

func (p *pathSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.paths)
}
