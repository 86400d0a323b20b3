package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over stripe indices
type ring struct {
	hashRing *treemap.Map

	// minEntry caches the min entry in hashRing, which is the wrap-around
	// target for hashes beyond the last point. treemap.Map.Min() is O(log n).
	minEntry int
}

// newRing returns a new consistent hash ring where every named entry occupies
// replicationFactor points
func newRing(entries map[string]int, replicationFactor uint) *ring {
	hashRing := treemap.NewWith(utils.Int64Comparator)
	for name, index := range entries {
		nameHash, _ := murmur3.Sum128([]byte(name))
		nameHashBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(nameHashBytes, nameHash)

		for i := 0; i < int(replicationFactor); i++ {
			replicaBytes := make([]byte, 4)
			binary.LittleEndian.PutUint32(replicaBytes, uint32(i))

			hasher := murmur3.New128()
			hasher.Write(nameHashBytes)
			hasher.Write(replicaBytes)
			point, _ := hasher.Sum128()
			hashRing.Put(int64(point), index)
		}
	}

	r := &ring{hashRing: hashRing}
	if _, minEntry := hashRing.Min(); minEntry != nil {
		r.minEntry = minEntry.(int)
	}
	return r
}

// shard consistently hashes the key and returns the owning stripe index
func (r *ring) shard(key []byte) int {
	raw, _ := murmur3.Sum128(key)
	_, index := r.hashRing.Ceiling(int64(raw))
	if index != nil {
		return index.(int)
	}
	return r.minEntry
}
