package logstore

import "github.com/gplg/logstore/internal/record"

// collectionAdapter implements collection.Store by routing writes and
// clears through the store's accessor and cache, so the Collection
// package never needs to import this one.
type collectionAdapter struct {
	s *Store
}

func (a *collectionAdapter) Write(msgs []record.Message) error {
	_, err := a.s.acc.Write(msgs)
	if err != nil {
		return err
	}
	a.s.cache.OnMessagesAdded(len(msgs))
	return nil
}

func (a *collectionAdapter) Clear() error {
	if err := a.s.acc.Clear(true); err != nil {
		return err
	}
	a.s.cache.Reset()
	return nil
}

func (a *collectionAdapter) Get(id int64) (record.Message, error) {
	return a.s.cache.GetMessage(id)
}

func (a *collectionAdapter) OldestID() int64 { return a.s.acc.OldestID() }
func (a *collectionAdapter) NewestID() int64 { return a.s.acc.NewestID() }
func (a *collectionAdapter) Count() int64    { return a.s.acc.Count() }
