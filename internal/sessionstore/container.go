// Package sessionstore holds the server-side half of a browser session: an
// opaque key-value container addressed by a session id that travels in a
// cookie. The container only ever stores ciphertext; the matching keys live
// in client-side cookies.
package sessionstore

import "slices"

type Container struct {
	id      string
	entries map[string]string
	dirty   bool
}

func NewContainer(id string) *Container {
	return &Container{
		id:      id,
		entries: make(map[string]string),
	}
}

// NewLoadedContainer rebuilds a container from persisted entries. The result
// is not marked dirty: loading is not a mutation.
func NewLoadedContainer(id string, entries map[string]string) *Container {
	c := NewContainer(id)
	for k, v := range entries {
		c.entries[k] = v
	}

	return c
}

func (c *Container) ID() string {
	return c.id
}

func (c *Container) Get(key string) (string, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *Container) Set(key, value string) {
	c.entries[key] = value
	c.dirty = true
}

func (c *Container) Delete(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}

	delete(c.entries, key)
	c.dirty = true
}

// Keys returns the container-side entry keys in sorted order.
func (c *Container) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Dirty reports whether the container was mutated since it was loaded.
func (c *Container) Dirty() bool {
	return c.dirty
}
