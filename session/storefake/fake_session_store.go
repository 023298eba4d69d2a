package storefake

import (
	"context"
	"sync"

	"github.com/jrsteele09/ticketremaster/session"
)

var _ session.Store = (*FakeSessionStore)(nil)

// FakeSessionStore is an in-memory session.Store whose calls can be made to
// fail, or to hang until their context ends.
type FakeSessionStore struct {
	mu       sync.Mutex
	current  *session.Session
	loadErr  error
	saveErr  error
	clearErr error
	block    bool
	entered  chan struct{}
	saves    int
	clears   int
}

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{entered: make(chan struct{}, 16)}
}

func (f *FakeSessionStore) FailLoad(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr = err
}

func (f *FakeSessionStore) FailSave(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

func (f *FakeSessionStore) FailClear(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearErr = err
}

// Block makes every later call wait for its context to end. The returned
// channel receives once for each call that starts waiting.
func (f *FakeSessionStore) Block() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = true
	return f.entered
}

// Calls returns how many Save and Clear calls were made, failed ones included.
func (f *FakeSessionStore) Calls() (saves, clears int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves, f.clears
}

func (f *FakeSessionStore) Load(ctx context.Context) (*session.Session, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.current == nil {
		return nil, nil
	}
	s := f.current.Clone()
	return &s, nil
}

func (f *FakeSessionStore) Save(ctx context.Context, s session.Session) error {
	f.mu.Lock()
	f.saves++
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	saved := s.Clone()
	f.current = &saved
	return nil
}

func (f *FakeSessionStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	f.clears++
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.current = nil
	return nil
}

func (f *FakeSessionStore) wait(ctx context.Context) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if !block {
		return nil
	}

	select {
	case f.entered <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}
