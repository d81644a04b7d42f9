package store

import (
	"sort"
	"sync"
)

type MemStore struct {
	mutex *sync.RWMutex
	db    map[string]Run
}

func NewMemStore() MemStore {
	return MemStore{
		mutex: &sync.RWMutex{},
		db:    make(map[string]Run),
	}
}

func (m MemStore) Save(run Run) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	run.Report = append([]byte(nil), run.Report...)
	m.db[run.ID] = run
	return nil
}

func (m MemStore) Get(id string) (Run, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	run, ok := m.db[id]
	return run, ok, nil
}

func (m MemStore) List() ([]RunInfo, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	runs := make([]RunInfo, 0, len(m.db))
	for _, run := range m.db {
		runs = append(runs, run.RunInfo)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}
