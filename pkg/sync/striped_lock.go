package sync

import (
	"fmt"
	"sort"
	base "sync"
)

const (
	hashEntriesPerLock = 200
)

// StripedLock is a partitioned locking mechanism that consistently maps a key
// space to a set of locks. This provides concurrent data access while also
// limiting the total memory footprint.
type StripedLock struct {
	locks    []base.RWMutex
	hashRing *ring
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	ringEntries := make(map[string]int)
	for i := 0; i < int(stripes); i++ {
		ringEntries[fmt.Sprintf("lock%d", i)] = i
	}

	return &StripedLock{
		locks:    make([]base.RWMutex, stripes),
		hashRing: newRing(ringEntries, hashEntriesPerLock),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.hashRing.shard(key)]
}

// LockAll exclusively locks every stripe covering the provided keys and
// returns a function that releases them.
//
// Stripes shared by several keys are locked once. Stripes are acquired in
// ascending index order.
func (l *StripedLock) LockAll(keys ...[]byte) func() {
	seen := make(map[int]struct{})
	var stripes []int
	for _, key := range keys {
		index := l.hashRing.shard(key)
		if _, ok := seen[index]; ok {
			continue
		}

		seen[index] = struct{}{}
		stripes = append(stripes, index)
	}
	sort.Ints(stripes)

	for _, index := range stripes {
		l.locks[index].Lock()
	}

	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			l.locks[stripes[i]].Unlock()
		}
	}
}
