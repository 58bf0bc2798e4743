// Package imagecache holds decoded page images while they are on screen.
//
// Entries are keyed by image reference and remember the last page that
// asked for them. The compositor evicts everything older than the page it is
// currently showing, so at steady state only the current and the next page
// are resident. A hard capacity backs this policy up.
package imagecache

import (
	"image"
	"sort"
)

// Loader decodes the image behind a reference. A nil image with a nil error
// means the page has no picture.
type Loader func(ref string) (image.Image, error)

type entry struct {
	img      image.Image
	lastPage int
}

// Cache is not safe for concurrent use; it belongs to a single compositor.
type Cache struct {
	load     Loader
	capacity int
	entries  map[string]*entry

	// OnError, when set, is told about loader failures. The failing
	// reference is cached as "no image" and not retried while resident.
	OnError func(ref string, err error)
}

// DefaultCapacity is the current page plus the one fading in.
const DefaultCapacity = 2

// New creates a cache; capacity < 1 selects DefaultCapacity.
func New(load Loader, capacity int) *Cache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Cache{
		load:     load,
		capacity: capacity,
		entries:  make(map[string]*entry, capacity+1),
	}
}

// Get returns the image for ref on behalf of page, decoding it on first use.
// The second result is false when the page has no usable image.
func (c *Cache) Get(page int, ref string) (image.Image, bool) {
	if e, ok := c.entries[ref]; ok {
		if page > e.lastPage {
			e.lastPage = page
		}
		return e.img, e.img != nil
	}

	var img image.Image
	if ref != "" {
		var err error
		img, err = c.load(ref)
		if err != nil {
			if c.OnError != nil {
				c.OnError(ref, err)
			}
			img = nil
		}
	}

	c.makeRoom()
	c.entries[ref] = &entry{img: img, lastPage: page}
	return img, img != nil
}

// makeRoom drops the entries with the oldest pages until one more fits.
func (c *Cache) makeRoom() {
	if len(c.entries) < c.capacity {
		return
	}
	type aged struct {
		ref  string
		page int
	}
	all := make([]aged, 0, len(c.entries))
	for ref, e := range c.entries {
		all = append(all, aged{ref, e.lastPage})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].page != all[j].page {
			return all[i].page < all[j].page
		}
		return all[i].ref < all[j].ref
	})
	for _, a := range all[:len(all)-c.capacity+1] {
		delete(c.entries, a.ref)
	}
}

// EvictBefore removes every entry last used by a page below page and returns
// how many were removed.
func (c *Cache) EvictBefore(page int) int {
	n := 0
	for ref, e := range c.entries {
		if e.lastPage < page {
			delete(c.entries, ref)
			n++
		}
	}
	return n
}

// Len is the number of resident entries, including recorded absences.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Contains reports whether ref is resident.
func (c *Cache) Contains(ref string) bool {
	_, ok := c.entries[ref]
	return ok
}

// Clear drops everything.
func (c *Cache) Clear() {
	for ref := range c.entries {
		delete(c.entries, ref)
	}
}
