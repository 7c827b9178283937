// Package cache implements the paged, MRU-ordered message cache that
// sits in front of the database accessor. It answers get(id) with
// O(1) expected cost after warm-up by keeping full pages of
// consecutive messages in memory. An evicted page's backing storage is
// reused in place for the page that replaces it; new pages take their
// slice from a pool of page-sized message slices, and pages dropped by
// Reset or OnMessagesRemoved are not returned to that pool.
//
// Cache is not safe for concurrent use; callers serialise access with
// the façade's single mutex, per the store's concurrency model.
package cache

import (
	"container/list"
	"sync"

	"github.com/gplg/logstore/internal/errs"
	"github.com/gplg/logstore/internal/record"
)

// Source is the subset of the accessor a Cache needs: range reads and
// the current id bounds. Depending on this narrow interface instead of
// the full accessor.Accessor keeps this package free of any dependency
// on internal/accessor.
type Source interface {
	Read(fromID int64, count int) ([]record.Message, error)
	OldestID() int64
	NewestID() int64
}

// page is one window of consecutive messages. messages may hold fewer
// than pageCapacity entries when the trailing portion of the window
// has not yet been fetched from the store.
type page struct {
	firstID  int64
	messages []record.Message
}

// Cache is a paged LRU view over a Source. The zero value is not
// usable; construct with New.
type Cache struct {
	source       Source
	maxPages     int
	pageCapacity int

	pages     *list.List // of *page, front = most recently used
	slicePool sync.Pool
}

// New builds a Cache bounded to maxPages pages of pageCapacity messages
// each, reading from source on a miss.
func New(source Source, maxPages, pageCapacity int) *Cache {
	c := &Cache{
		source:       source,
		maxPages:     maxPages,
		pageCapacity: pageCapacity,
		pages:        list.New(),
	}
	c.slicePool.New = func() any {
		s := make([]record.Message, 0, pageCapacity)
		return &s
	}
	return c
}

// alignedFirstID computes the start of the page window containing id,
// given the store's current oldest id.
func alignedFirstID(id, oldest int64, pageCapacity int) int64 {
	cap64 := int64(pageCapacity)
	return oldest + cap64*((id-oldest)/cap64)
}

// GetMessage returns the message with the given id, consulting cached
// pages before falling back to the store. It implements the five-step
// algorithm: scan for a covering page; hit fully materialised; hit
// with an unfetched tail (extend in place); miss with room to grow
// (insert a new page); miss at capacity (evict the LRU page and
// recycle its storage).
func (c *Cache) GetMessage(id int64) (record.Message, error) {
	oldest, newest := c.source.OldestID(), c.source.NewestID()
	if oldest < 0 || id < oldest || id > newest {
		return record.Message{}, errs.New("get-message", errs.KindArgumentOutOfRange, nil)
	}

	if elem := c.find(id); elem != nil {
		p := elem.Value.(*page)
		offset := int(id - p.firstID)
		if offset < len(p.messages) {
			c.pages.MoveToFront(elem)
			return p.messages[offset], nil
		}
		if err := c.extend(p, newest); err != nil {
			return record.Message{}, err
		}
		c.pages.MoveToFront(elem)
		offset = int(id - p.firstID)
		if offset >= len(p.messages) {
			return record.Message{}, errs.New("get-message", errs.KindArgumentOutOfRange, nil)
		}
		return p.messages[offset], nil
	}

	first := alignedFirstID(id, oldest, c.pageCapacity)
	var p *page
	if c.pages.Len() < c.maxPages {
		p = &page{firstID: first, messages: c.freshSlice()}
	} else {
		back := c.pages.Back()
		p = back.Value.(*page)
		c.pages.Remove(back)
		p.firstID = first
		p.messages = p.messages[:0]
	}

	if err := c.fill(p, first, newest); err != nil {
		return record.Message{}, err
	}
	c.pages.PushFront(p)

	offset := int(id - p.firstID)
	if offset >= len(p.messages) {
		return record.Message{}, errs.New("get-message", errs.KindArgumentOutOfRange, nil)
	}
	return p.messages[offset], nil
}

func (c *Cache) find(id int64) *list.Element {
	for e := c.pages.Front(); e != nil; e = e.Next() {
		p := e.Value.(*page)
		if id >= p.firstID && id < p.firstID+int64(c.pageCapacity) {
			return e
		}
	}
	return nil
}

func (c *Cache) fill(p *page, first, newest int64) error {
	last := first + int64(c.pageCapacity) - 1
	if last > newest {
		last = newest
	}
	msgs, err := c.source.Read(first, int(last-first+1))
	if err != nil {
		return err
	}
	p.messages = append(p.messages, msgs...)
	return nil
}

func (c *Cache) extend(p *page, newest int64) error {
	have := p.firstID + int64(len(p.messages))
	last := p.firstID + int64(c.pageCapacity) - 1
	if last > newest {
		last = newest
	}
	if have > last {
		return nil
	}
	msgs, err := c.source.Read(have, int(last-have+1))
	if err != nil {
		return err
	}
	p.messages = append(p.messages, msgs...)
	return nil
}

func (c *Cache) freshSlice() []record.Message {
	s := c.slicePool.Get().(*[]record.Message)
	return (*s)[:0]
}

// OnMessagesRemoved drops every page whose range is no longer fully
// within [oldest, newest], per the store's messages-removed
// notification. Surviving pages are left untouched.
func (c *Cache) OnMessagesRemoved() {
	oldest, newest := c.source.OldestID(), c.source.NewestID()
	var next *list.Element
	for e := c.pages.Front(); e != nil; e = next {
		next = e.Next()
		p := e.Value.(*page)
		lastInPage := p.firstID + int64(len(p.messages)) - 1
		if oldest < 0 || p.firstID < oldest || lastInPage > newest {
			c.pages.Remove(e)
		}
	}
}

// OnMessagesAdded is a documented no-op: newly appended ids lie beyond
// every message already cached (pages only ever hold ids up to the
// previous newest id), and a partially filled page whose window covers
// them fetches the missing tail on its next hit, so nothing needs
// invalidating. It exists to mirror the store's notification pair and
// give callers (the façade, the collection) one place to route both.
func (c *Cache) OnMessagesAdded(n int) {}

// Reset drops every cached page, e.g. after page_capacity changes.
func (c *Cache) Reset() {
	c.pages.Init()
}

// Len reports how many pages are currently cached.
func (c *Cache) Len() int {
	return c.pages.Len()
}
