package service

import (
	"container/list"
	"encoding/json"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/barbell/internal/domain/model"
)

// snapshotHash fingerprints a snapshot. Identical tournament state always
// produces the same key because the store orders athletes and attempts.
func snapshotHash(s model.Snapshot) (uint64, error) {
	d := xxhash.New()
	if err := json.NewEncoder(d).Encode(s); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}

type cached struct {
	hash      uint64
	standings model.Standings
}

// standingsCache keeps the most recent computations per tournament, keyed
// by snapshot hash. Stored standings are shared and must not be mutated.
type standingsCache struct {
	mu    sync.Mutex
	limit int
	byTID map[string]*list.List // of *cached, most recent first
}

func newStandingsCache(limit int) *standingsCache {
	return &standingsCache{limit: limit, byTID: make(map[string]*list.List)}
}

func (c *standingsCache) get(tournamentID string, hash uint64) (model.Standings, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.byTID[tournamentID]
	if !ok {
		return model.Standings{}, false
	}
	for e := l.Front(); e != nil; e = e.Next() {
		if entry := e.Value.(*cached); entry.hash == hash {
			l.MoveToFront(e)
			return entry.standings, true
		}
	}
	return model.Standings{}, false
}

func (c *standingsCache) put(tournamentID string, hash uint64, s model.Standings) {
	if c.limit <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.byTID[tournamentID]
	if !ok {
		l = list.New()
		c.byTID[tournamentID] = l
	}
	for e := l.Front(); e != nil; e = e.Next() {
		if e.Value.(*cached).hash == hash {
			// A concurrent miss on the same snapshot got here first.
			l.MoveToFront(e)
			return
		}
	}
	l.PushFront(&cached{hash: hash, standings: s})
	for l.Len() > c.limit {
		l.Remove(l.Back())
	}
}

func (c *standingsCache) drop(tournamentID string) {
	c.mu.Lock()
	delete(c.byTID, tournamentID)
	c.mu.Unlock()
}

func (c *standingsCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.byTID {
		n += l.Len()
	}
	return n
}
