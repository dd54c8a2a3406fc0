package correlation

import (
	"context"
	"sync"
)

// keyLock - блокировка одного ключа корреляции. Канал емкостью 1 позволяет
// прервать ожидание по контексту, чего не умеет sync.Mutex.
type keyLock struct {
	ch   chan struct{}
	refs int
}

// keyLocks - таблица блокировок по ключу корреляции. Записи создаются по
// требованию и удаляются, когда ими никто не пользуется, поэтому разные
// ключи никогда не делят одну блокировку.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// acquire захватывает ключ и возвращает функцию освобождения
func (k *keyLocks) acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(key, l)
		})
	}, nil
}

func (k *keyLocks) release(key string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// size возвращает число активных ключей
func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
