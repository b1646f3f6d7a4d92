package dataset

import (
	"github.com/RoaringBitmap/roaring/roaring64"
)

// KeySet is a set of integer keys used for foreign-key existence checks.
// Keys are stored in a 64-bit roaring bitmap, so building the set is linear in
// the number of keys and membership is constant time in practice.
type KeySet struct {
	bm *roaring64.Bitmap
}

// NewKeySet returns a set holding keys.
func NewKeySet(keys ...int64) *KeySet {
	s := &KeySet{bm: roaring64.New()}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// KeysOf collects the non-null keys returned by key for every record.
func KeysOf[T any](records []T, key func(T) *int64) *KeySet {
	s := NewKeySet()
	for _, r := range records {
		if k := key(r); k != nil {
			s.Add(*k)
		}
	}
	return s
}

// ColumnKeys collects the integer keys of a table column. Missing and
// unparseable cells are skipped.
func ColumnKeys(t *Table, column string) *KeySet {
	s := NewKeySet()
	for i := range t.Rows {
		if k, ok := t.Row(i).Int(column); ok {
			s.Add(k)
		}
	}
	return s
}

// Add inserts a key.
func (s *KeySet) Add(k int64) {
	s.bm.Add(uint64(k))
}

// Contains reports whether k is in the set.
func (s *KeySet) Contains(k int64) bool {
	return s.bm.Contains(uint64(k))
}

// Has reports whether a nullable key is in the set. A nil key never is.
func (s *KeySet) Has(k *int64) bool {
	if k == nil || s == nil {
		return false
	}
	return s.Contains(*k)
}

// Len returns the number of distinct keys.
func (s *KeySet) Len() int {
	return int(s.bm.GetCardinality())
}
