// Package cache keeps large immutable objects, such as model weights, that
// should be read from disk once per process no matter how many engines are
// built. Keys are free-form, conventionally "<kind>:<path>".
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nighty/mlchess/config"
)

// LoadFunc produces the object for key on a cache miss.
type LoadFunc func(cfg *config.Config, key string) (interface{}, error)

type entry struct {
	obj      interface{}
	loadedAt time.Time
	hits     int
}

type objectCache struct {
	sync.Mutex
	entries map[string]*entry
}

var global = &objectCache{entries: map[string]*entry{}}

// Load returns the object stored under key, calling fn on first use. A
// failed load is not remembered; the next call tries again. fn runs with
// the cache locked, so two engines never read the same model twice.
func Load(cfg *config.Config, key string, fn LoadFunc) (interface{}, error) {
	global.Lock()
	defer global.Unlock()
	if e, ok := global.entries[key]; ok {
		e.hits++
		log.Debug().Str("key", key).Int("hits", e.hits).
			Dur("age", time.Since(e.loadedAt)).Msg("cache-hit")
		return e.obj, nil
	}
	log.Debug().Str("key", key).Msg("cache-miss")
	obj, err := fn(cfg, key)
	if err != nil {
		return nil, err
	}
	global.entries[key] = &entry{obj: obj, loadedAt: time.Now()}
	return obj, nil
}

// Keys lists what is loaded, sorted.
func Keys() []string {
	global.Lock()
	defer global.Unlock()
	keys := make([]string, 0, len(global.entries))
	for k := range global.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Purge drops everything, so the next Load of any key reads it again.
func Purge() {
	global.Lock()
	defer global.Unlock()
	global.entries = map[string]*entry{}
}
