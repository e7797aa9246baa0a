package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Scan identifiers are ULIDs: a 48-bit millisecond timestamp followed by
// 80 bits of entropy, Crockford Base32 encoded to 26 characters. IDs
// minted in the same millisecond stay unique and ordered through a
// counter in the leading entropy bytes.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

type ulidSource struct {
	mu  sync.Mutex
	ms  uint64
	seq uint16
}

var scanIDs ulidSource

func generateULID() string {
	return scanIDs.next(time.Now())
}

func (s *ulidSource) next(now time.Time) string {
	s.mu.Lock()
	ms := uint64(now.UnixMilli())
	if ms == s.ms {
		s.seq++
	} else {
		s.ms = ms
		s.seq = 0
	}
	seq := s.seq
	s.mu.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], ms<<16)
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeBase32(b)
}

// encodeBase32 renders 128 bits as 26 Crockford characters. 26 groups of
// 5 bits cover 130 bits, so the leftmost character carries only the top
// 3 bits.
func encodeBase32(b [16]byte) string {
	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[b[15]&0x1f]
		shiftRight5(&b)
	}
	return string(out[:])
}

func shiftRight5(b *[16]byte) {
	var carry byte
	for i := range b {
		cur := b[i]
		b[i] = cur>>5 | carry<<3
		carry = cur & 0x1f
	}
}
