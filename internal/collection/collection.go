// Package collection exposes a store as an observable, ordered,
// append-only sequence of messages: indexed access, enumeration,
// contains/index-of, and change notifications. It is a view — it owns
// only its own observer list, delegating every read and mutation to
// the Store it was built around.
package collection

import (
	"math"

	"github.com/gplg/logstore/internal/errs"
	"github.com/gplg/logstore/internal/record"
)

// Store is the subset of the façade a Collection needs. Defined here,
// narrow, so this package never imports the root package back.
type Store interface {
	Write(msgs []record.Message) error
	Clear() error
	Get(id int64) (record.Message, error)
	OldestID() int64
	NewestID() int64
	Count() int64
}

// ChangeKind distinguishes the two collection-changed event variants.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeReset
)

// Observer receives collection-changed and property-changed
// notifications. An append emits one Added call per message (not one
// per batch) so that naive observers can render incrementally, then a
// single CountChanged call once the batch has landed. A reset (clear)
// emits Reset then CountChanged. There is no separate "item changed"
// event: for an append-only collection, Added already covers it.
type Observer interface {
	Added(msg record.Message)
	Reset()
	CountChanged(count int64)
}

// FuncObserver adapts plain functions to the Observer interface; any
// nil field is treated as "not interested" in that event.
type FuncObserver struct {
	OnAdded        func(record.Message)
	OnReset        func()
	OnCountChanged func(int64)
}

func (f FuncObserver) Added(msg record.Message) {
	if f.OnAdded != nil {
		f.OnAdded(msg)
	}
}

func (f FuncObserver) Reset() {
	if f.OnReset != nil {
		f.OnReset()
	}
}

func (f FuncObserver) CountChanged(count int64) {
	if f.OnCountChanged != nil {
		f.OnCountChanged(count)
	}
}

// Collection is an observable ordered view over a Store's messages.
// Not safe for concurrent use. The façade's single mutex covers the
// calls the façade itself makes into it; calls made directly on a
// Collection run without that mutex.
type Collection struct {
	store            Store
	observers        []Observer
	defaultSliceSize int
}

// New builds a Collection backed by store, with the given default
// CopyTo slice size (used whenever CopyTo is called with sliceSize <= 0).
func New(store Store, defaultSliceSize int) *Collection {
	if defaultSliceSize <= 0 {
		defaultSliceSize = 1000
	}
	return &Collection{store: store, defaultSliceSize: defaultSliceSize}
}

// subscription wraps a registered Observer in a pointer so that
// unsubscribing finds it by identity, even when the Observer's own
// dynamic type (such as FuncObserver) is not comparable.
type subscription struct{ Observer }

// Subscribe registers o for every future notification and returns a
// function that unregisters it.
func (c *Collection) Subscribe(o Observer) func() {
	sub := &subscription{o}
	c.observers = append(c.observers, sub)
	return func() {
		for i, registered := range c.observers {
			if registered == Observer(sub) {
				c.observers = append(c.observers[:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// SubscribeLegacy registers fn to be called once per added message,
// ignoring reset and count-changed notifications — the thin per-item
// adapter for observers that cannot digest multi-item batches or the
// richer Observer interface.
func (c *Collection) SubscribeLegacy(fn func(record.Message)) func() {
	return c.Subscribe(FuncObserver{OnAdded: fn})
}

func (c *Collection) notifyAdded(msg record.Message) {
	for _, o := range c.observers {
		o.Added(msg)
	}
}

func (c *Collection) notifyReset() {
	for _, o := range c.observers {
		o.Reset()
	}
}

func (c *Collection) notifyCountChanged() {
	count := c.store.Count()
	for _, o := range c.observers {
		o.CountChanged(count)
	}
}

// Len reports the current message count.
func (c *Collection) Len() int64 {
	return c.store.Count()
}

// Len32 reports the current message count as an int32, signalling
// store-too-large when the count exceeds 32-bit range.
func (c *Collection) Len32() (int32, error) {
	count := c.store.Count()
	if count > math.MaxInt32 {
		return 0, errs.New("len", errs.KindStoreTooLarge, nil)
	}
	return int32(count), nil
}

// GetAt fetches the message at absolute position index (0-based),
// resolving to id = oldest + index and delegating to the cache.
func (c *Collection) GetAt(index int64) (record.Message, error) {
	if index < 0 || index >= c.store.Count() {
		return record.Message{}, errs.New("get", errs.KindArgumentOutOfRange, nil)
	}
	return c.store.Get(c.store.OldestID() + index)
}

// Get32 is the 32-bit-indexed counterpart to GetAt, signalling
// store-too-large when the collection's count exceeds 32-bit range.
func (c *Collection) Get32(index int32) (record.Message, error) {
	if _, err := c.Len32(); err != nil {
		return record.Message{}, err
	}
	return c.GetAt(int64(index))
}

// Contains reports whether msg's id falls within the store's current
// range. It is an exact id match, not a field-by-field comparison —
// ids uniquely identify messages within a store, and field equality
// would require loading messages that may not be cached.
func (c *Collection) Contains(msg record.Message) bool {
	oldest, newest := c.store.OldestID(), c.store.NewestID()
	return oldest >= 0 && msg.Id >= oldest && msg.Id <= newest
}

// IndexOf returns msg's absolute position, or -1 if it is not present.
func (c *Collection) IndexOf(msg record.Message) int64 {
	if !c.Contains(msg) {
		return -1
	}
	return msg.Id - c.store.OldestID()
}

// Append writes msg and emits Added then CountChanged.
func (c *Collection) Append(msg record.Message) error {
	return c.AppendMany([]record.Message{msg})
}

// AppendMany writes msgs and emits one Added per message, then a
// single CountChanged for the whole batch.
func (c *Collection) AppendMany(msgs []record.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := c.store.Write(msgs); err != nil {
		return err
	}
	for _, m := range msgs {
		c.notifyAdded(m)
	}
	c.notifyCountChanged()
	return nil
}

// Clear empties the collection and emits Reset then CountChanged.
func (c *Collection) Clear() error {
	if err := c.store.Clear(); err != nil {
		return err
	}
	c.notifyReset()
	c.notifyCountChanged()
	return nil
}

// CopyTo streams count messages starting at firstIndex into dest, in
// slices of sliceSize, so that neither collection has to hold the
// entire span in memory at once.
func (c *Collection) CopyTo(dest *Collection, firstIndex, count int64, sliceSize int) error {
	if sliceSize <= 0 {
		sliceSize = c.defaultSliceSize
	}
	oldest := c.store.OldestID()
	for copied := int64(0); copied < count; {
		n := int64(sliceSize)
		if remaining := count - copied; n > remaining {
			n = remaining
		}
		batch := make([]record.Message, 0, n)
		for i := int64(0); i < n; i++ {
			msg, err := c.store.Get(oldest + firstIndex + copied + i)
			if err != nil {
				return err
			}
			batch = append(batch, msg)
		}
		if err := dest.AppendMany(batch); err != nil {
			return err
		}
		copied += n
	}
	return nil
}

// Insert is not supported: arbitrary in-place edits would break the
// id-is-position invariant and observer identity.
func (c *Collection) Insert(index int64, msg record.Message) error {
	return errs.New("insert", errs.KindOperationNotSupported, nil)
}

// Remove is not supported, for the same reason as Insert.
func (c *Collection) Remove(msg record.Message) error {
	return errs.New("remove", errs.KindOperationNotSupported, nil)
}

// RemoveAt is not supported, for the same reason as Insert.
func (c *Collection) RemoveAt(index int64) error {
	return errs.New("remove-at", errs.KindOperationNotSupported, nil)
}

// Set is not supported, for the same reason as Insert.
func (c *Collection) Set(index int64, msg record.Message) error {
	return errs.New("set", errs.KindOperationNotSupported, nil)
}
