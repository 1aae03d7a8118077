package normalize_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alnah/vstprep/internal/audio"
)

// memStore is an in-memory clip store implementing both audio.Codec and the
// scheduler's file system, so jobs run without touching disk.
type memStore struct {
	mu    sync.Mutex
	files map[string]audio.Buffer
	temps int

	// Failure injection, keyed by path.
	failLoad   map[string]bool
	failRename map[string]bool
	failRemove map[string]bool

	// Concurrency tracking.
	active    atomic.Int32
	maxActive atomic.Int32
	loadDelay time.Duration
	gate      chan struct{} // when non-nil, Load blocks until it is closed
}

func newMemStore() *memStore {
	return &memStore{
		files:      make(map[string]audio.Buffer),
		failLoad:   make(map[string]bool),
		failRename: make(map[string]bool),
		failRemove: make(map[string]bool),
	}
}

func (m *memStore) put(path string, buf audio.Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = buf
}

func (m *memStore) has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *memStore) get(path string) audio.Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[path]
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

func (m *memStore) Load(_ context.Context, path string) (audio.Buffer, error) {
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		cur := m.maxActive.Load()
		if n <= cur || m.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	if m.gate != nil {
		<-m.gate
	}
	if m.loadDelay > 0 {
		time.Sleep(m.loadDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad[path] {
		return audio.Buffer{}, fmt.Errorf("%w: corrupt", audio.ErrDecode)
	}
	buf, ok := m.files[path]
	if !ok {
		return audio.Buffer{}, fmt.Errorf("%w: %s", audio.ErrFileNotFound, path)
	}
	return buf, nil
}

func (m *memStore) Save(buf audio.Buffer, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = buf
	return nil
}

func (m *memStore) CreateTemp(dir, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temps++
	name := fmt.Sprintf("%s/.normalizing-%d.wav", dir, m.temps)
	m.files[name] = audio.Buffer{}
	return name, nil
}

func (m *memStore) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRename[newpath] {
		return errors.New("rename refused")
	}
	buf, ok := m.files[oldpath]
	if !ok {
		return fmt.Errorf("rename %s: not found", oldpath)
	}
	delete(m.files, oldpath)
	m.files[newpath] = buf
	return nil
}

func (m *memStore) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRemove[name] {
		return errors.New("remove refused")
	}
	if _, ok := m.files[name]; !ok {
		return fmt.Errorf("remove %s: not found", name)
	}
	delete(m.files, name)
	return nil
}
