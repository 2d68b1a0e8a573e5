package pipeline

import "sync"

// assetLocks serializes runs of the same asset.
type assetLocks struct {
	mu    sync.Mutex
	locks map[int64]*assetLock
}

type assetLock struct {
	mu   sync.Mutex
	refs int
}

func newAssetLocks() *assetLocks {
	return &assetLocks{locks: make(map[int64]*assetLock)}
}

func (a *assetLocks) lock(assetID int64) (unlock func()) {
	a.mu.Lock()
	l, ok := a.locks[assetID]
	if !ok {
		l = &assetLock{}
		a.locks[assetID] = l
	}
	l.refs++
	a.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		a.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, assetID)
		}
		a.mu.Unlock()
	}
}
