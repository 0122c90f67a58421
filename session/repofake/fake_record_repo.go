package repofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/session"
)

var _ session.Repo = (*FakeRecordRepo)(nil)

// FakeRecordRepo is an in-memory session.Repo. It counts writes and deletes
// and can be told to fail, which is all the tests need.
type FakeRecordRepo struct {
	lock    sync.RWMutex
	records map[string][]byte
	puts    int
	deletes int
	failPut error
	failGet error
}

func NewFakeRecordRepo() *FakeRecordRepo {
	return &FakeRecordRepo{
		records: make(map[string][]byte),
	}
}

func (r *FakeRecordRepo) Get(_ context.Context, key string) ([]byte, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	data, ok := r.records[key]
	if !ok {
		return nil, errors.ErrRecordNotFound
	}
	return append([]byte(nil), data...), nil
}

func (r *FakeRecordRepo) Put(_ context.Context, key string, data []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.failPut != nil {
		return r.failPut
	}
	r.records[key] = append([]byte(nil), data...)
	r.puts++
	return nil
}

func (r *FakeRecordRepo) Delete(_ context.Context, key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.records[key]; !ok {
		return errors.ErrRecordNotFound
	}
	delete(r.records, key)
	r.deletes++
	return nil
}

// Seed stores raw bytes under key, bypassing the counters.
func (r *FakeRecordRepo) Seed(key string, data []byte) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.records[key] = append([]byte(nil), data...)
}

// Raw returns the stored bytes for key.
func (r *FakeRecordRepo) Raw(key string) ([]byte, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	data, ok := r.records[key]
	return data, ok
}

// Puts returns the number of successful writes.
func (r *FakeRecordRepo) Puts() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.puts
}

// Deletes returns the number of successful deletes.
func (r *FakeRecordRepo) Deletes() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.deletes
}

// FailPut makes subsequent writes return err; nil restores normal behaviour.
func (r *FakeRecordRepo) FailPut(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.failPut = err
}

// FailGet makes subsequent reads return err; nil restores normal behaviour.
func (r *FakeRecordRepo) FailGet(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.failGet = err
}
