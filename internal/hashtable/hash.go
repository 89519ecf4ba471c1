// Package hashtable implements the "unchained" single-probe hash table
// described by spec.md §4.3: a fixed-size directory of packed
// pointer+Bloom-filter entries over a contiguous tuple-storage array, built
// from a materialized, already-hashed key column.
//
// Hashing itself (hash.go) is grounded in the teacher's use of
// hash/crc32 with the Castagnoli table for its page checksums
// (internal/storage/pager/page.go): the same table computes the CRC32
// halves this package's HashI32/HashI64 combine into the spec's documented
// constants. String hashing uses github.com/cespare/xxhash/v2, grounded in
// the quay-claircore reference repo, since the teacher never hashes
// strings itself.
package hashtable

import (
	"encoding/binary"
	"hash/crc32"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Hash multipliers, normative per spec.md §6.
const (
	K32 uint64 = 0x8648DBDB
	K64 uint64 = 0x2545F4914F6CDD1D
)

// crcTable is CRC32-C (Castagnoli), the same polynomial the teacher's page
// header checksum uses and the one most hardware CRC32 instructions compute.
var crcTable = crc32.MakeTable(crc32.Castagnoli)

func crc32Of(b []byte) uint32 {
	return crc32.Checksum(b, crcTable)
}

// HashI32 computes the 64-bit hash of a 32-bit signed key:
// CRC32(seed=0, k) * ((K32<<32)|1).
func HashI32(k int32) uint64 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(k))
	c := uint64(crc32Of(b[:]))
	return c * ((K32 << 32) | 1)
}

// HashI64 computes the 64-bit hash of a 64-bit signed key: two independent
// CRC32 steps over the low and high 32 bits of k, concatenated into a
// 64-bit value (low CRC in the low 32 bits, high CRC in the high 32 bits),
// multiplied by K64.
func HashI64(k int64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(k))
	lo := crc32Of(b[0:4])
	hi := crc32Of(b[4:8])
	combined := uint64(hi)<<32 | uint64(lo)
	return combined * K64
}

// HashF64 hashes the bit pattern of a float64 key using the same
// composition as HashI64.
func HashF64(f float64) uint64 {
	return HashI64(int64(math.Float64bits(f)))
}

// HashString hashes a string key with xxhash, a high-quality non-
// cryptographic hash explicitly permitted by spec.md §4.3.
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}
