package sync

import (
	"encoding/binary"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring consistently maps keys onto stripe indices. Each stripe owns
// virtualNodes points on a murmur3 hash ring.
type ring struct {
	points *treemap.Map // int64 -> int
	first  int
}

func newRing(stripes, virtualNodes uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)

	var buf [12]byte
	for stripe := uint(0); stripe < stripes; stripe++ {
		seed, _ := murmur3.Sum128([]byte(fmt.Sprintf("lock%d", stripe)))
		binary.LittleEndian.PutUint64(buf[:8], seed)

		for node := uint(0); node < virtualNodes; node++ {
			binary.LittleEndian.PutUint32(buf[8:], uint32(node))
			point, _ := murmur3.Sum128(buf[:])
			points.Put(int64(point), int(stripe))
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

// stripe returns the stripe owning the first point at or after the hash of
// key, wrapping around to the lowest point.
func (r *ring) stripe(key []byte) int {
	hash, _ := murmur3.Sum128(key)
	if _, stripe := r.points.Ceiling(int64(hash)); stripe != nil {
		return stripe.(int)
	}
	return r.first
}
