package drive

import "sync"

// Locks сериализует изменяющие операции в пределах одного диска.
type Locks struct {
	mu   sync.Mutex
	held map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{held: make(map[int64]*userLock)}
}

// Lock захватывает блокировку диска userID и возвращает функцию освобождения.
func (l *Locks) Lock(userID int64) (unlock func()) {
	l.mu.Lock()
	ul, ok := l.held[userID]
	if !ok {
		ul = &userLock{}
		l.held[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.held, userID)
		}
		l.mu.Unlock()
	}
}
