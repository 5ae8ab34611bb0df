// Package testutil has small helpers for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// JS renders the given value as JSON (or with %#v if that fails).
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimjs, when given a string or bytes that parse as JSON, returns
// the parsed value.  When given anything else, just returns what's
// given.
//
// See https://en.wikipedia.org/wiki/DWIM.
func Dwimjs(x interface{}) interface{} {
	switch vv := x.(type) {
	case []byte:
		return Dwimjs(string(vv))
	case string:
		var v interface{}
		if err := json.Unmarshal([]byte(vv), &v); err != nil {
			return vv
		}
		return v
	default:
		return x
	}
}

// Counter counts calls by name.  Safe for concurrent use.
type Counter struct {
	sync.Mutex
	counts map[string]int
}

// NewCounter makes an empty Counter.
func NewCounter() *Counter {
	return &Counter{
		counts: make(map[string]int),
	}
}

// Inc increments the count for the given name.
func (c *Counter) Inc(name string) {
	c.Lock()
	c.counts[name]++
	c.Unlock()
}

// Get returns the count for the given name.
func (c *Counter) Get(name string) int {
	c.Lock()
	defer c.Unlock()
	return c.counts[name]
}

// Names returns the names with nonzero counts.
func (c *Counter) Names() []string {
	c.Lock()
	defer c.Unlock()
	acc := make([]string, 0, len(c.counts))
	for name := range c.counts {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}
