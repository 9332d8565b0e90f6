// Package store implements the server's typed key-value storage: three
// independent keyspaces (strings, lists, hashes) sharing one flat key
// namespace, plus a per-key expiry index. A single mutex covers all four
// maps as one logical unit, so every operation below is atomic with
// respect to every other operation (invariant I3).
//
// Reading a key that exists under a different type is treated exactly
// like reading an absent key (nil/zero/empty), mirroring GET's documented
// "absent or non-string -> nil bulk" rule uniformly across all read ops;
// see DESIGN.md for why this specification folds "wrong type" into
// "absent" instead of introducing a WRONGTYPE error the wire-error table
// in spec.md §7 never names. Writes that create a value (LPUSH, RPUSH,
// HSET, HMSET) clear any existing entry of a different type first, the
// same way SET and RENAME already do, to keep invariant I1 (at most one
// typed map holds a given key) intact. HSETNX never creates a hash, so
// it leaves a key of another type untouched.
package store

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/mshaverdo/assert"
)

// ErrIndexOutOfRange is returned by LSet when the list is absent or the
// index does not resolve within its bounds.
var ErrIndexOutOfRange = errors.New("Index out of range")

// Kind identifies which typed map, if any, holds a key.
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindList
	KindHash
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindHash:
		return "hash"
	default:
		return "none"
	}
}

// Store holds the three typed keyspaces and their shared expiry index.
// The zero value is not usable; construct with New.
type Store struct {
	mu sync.Mutex

	strings map[string]string
	lists   map[string][]string
	hashes  map[string]map[string]string
	expires map[string]time.Time

	// now is the monotonic clock source for expiry deadlines (invariant
	// I4); overridden in tests, defaults to time.Now.
	now func() time.Time

	// rnd drives HRANDFIELD's uniform-with-replacement sampling.
	rnd *rand.Rand
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		strings: make(map[string]string),
		lists:   make(map[string][]string),
		hashes:  make(map[string]map[string]string),
		expires: make(map[string]time.Time),
		now:     time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetClock overrides the Store's monotonic clock source; intended for
// tests that need deterministic expiry behavior.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Snapshot returns a point-in-time copy of the three typed maps, taken
// atomically under the store lock, for the snapshot codec to serialize.
// Expiry deadlines are intentionally not included: the snapshot format
// does not persist them (spec.md §4.3).
func (s *Store) Snapshot() (strings map[string]string, lists map[string][]string, hashes map[string]map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	strings = make(map[string]string, len(s.strings))
	for k, v := range s.strings {
		strings[k] = v
	}

	lists = make(map[string][]string, len(s.lists))
	for k, v := range s.lists {
		cp := make([]string, len(v))
		copy(cp, v)
		lists[k] = cp
	}

	hashes = make(map[string]map[string]string, len(s.hashes))
	for k, fields := range s.hashes {
		cp := make(map[string]string, len(fields))
		for f, v := range fields {
			cp[f] = v
		}
		hashes[k] = cp
	}

	return strings, lists, hashes
}

// Restore clears all three typed maps and the expiry index, then
// installs the given data, atomically under the store lock. Loaded keys
// are non-expiring, matching the snapshot format's documented limitation
// (spec.md §4.3).
func (s *Store) Restore(strings map[string]string, lists map[string][]string, hashes map[string]map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.strings = strings
	s.lists = lists
	s.hashes = hashes
	s.expires = make(map[string]time.Time)

	if s.strings == nil {
		s.strings = make(map[string]string)
	}
	if s.lists == nil {
		s.lists = make(map[string][]string)
	}
	if s.hashes == nil {
		s.hashes = make(map[string]map[string]string)
	}
}

// sweepLocked removes every key whose deadline has elapsed. Must be
// called with mu held; every public operation starts with a sweep so no
// externally observable read ever returns an expired value (§4.2.1).
func (s *Store) sweepLocked() {
	if len(s.expires) == 0 {
		return
	}

	now := s.now()
	var expired []string
	for k, deadline := range s.expires {
		if !now.Before(deadline) {
			expired = append(expired, k)
		}
	}
	for _, k := range expired {
		s.removeAllLocked(k)
	}
}

// removeAllLocked deletes key from all four maps. Must be called with mu
// held.
func (s *Store) removeAllLocked(key string) {
	delete(s.strings, key)
	delete(s.lists, key)
	delete(s.hashes, key)
	delete(s.expires, key)
}

// kindLocked reports which typed map, if any, holds key. Must be called
// with mu held.
func (s *Store) kindLocked(key string) Kind {
	if _, ok := s.strings[key]; ok {
		return KindString
	}
	if _, ok := s.lists[key]; ok {
		return KindList
	}
	if _, ok := s.hashes[key]; ok {
		return KindHash
	}
	return KindNone
}

///////////////////////// string ops /////////////////////////

// Set unconditionally installs key -> value as a STRING, clearing any
// prior LIST/HASH entry and any expiry at key.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	s.removeAllLocked(key)
	s.strings[key] = value
}

// Get returns the STRING value at key, or ok=false if key is absent or
// holds a non-string value.
func (s *Store) Get(key string) (value string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	value, ok = s.strings[key]
	return value, ok
}

// GetSet atomically reads the prior STRING value at key (ok=false if
// absent or non-string) and installs key -> value as a STRING, clearing
// any expiry.
func (s *Store) GetSet(key, value string) (prior string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	prior, ok = s.strings[key]
	s.removeAllLocked(key)
	s.strings[key] = value
	return prior, ok
}

///////////////////////// generic ops /////////////////////////

// Keys returns all live keys across all three typed maps, in no
// particular order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	keys := make([]string, 0, len(s.strings)+len(s.lists)+len(s.hashes))
	for k := range s.strings {
		keys = append(keys, k)
	}
	for k := range s.lists {
		keys = append(keys, k)
	}
	for k := range s.hashes {
		keys = append(keys, k)
	}
	return keys
}

// Type reports the Kind of key, or KindNone if absent.
func (s *Store) Type(key string) Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	return s.kindLocked(key)
}

// Del removes key from every typed map and the expiry index, returning 1
// if it was present in a typed map, else 0.
func (s *Store) Del(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) == KindNone {
		return 0
	}
	s.removeAllLocked(key)
	return 1
}

// Expire sets key's deadline to now + seconds if key exists in some typed
// map, returning true. Returns false if key does not exist. A
// non-positive seconds value is permitted and causes key to sweep at or
// before the next operation.
func (s *Store) Expire(key string, seconds int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) == KindNone {
		return false
	}
	s.expires[key] = s.now().Add(time.Duration(seconds) * time.Second)
	return true
}

// Rename moves old's value (and expiry, if any) to new in whichever
// typed map holds old, overwriting whatever is at new in ANY typed map
// first (spec.md §9 recommendation (a), closing the gap where a naive
// move could leave two typed entries for new and violate invariant I1).
// Returns false if old does not exist.
func (s *Store) Rename(oldKey, newKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	kind := s.kindLocked(oldKey)
	if kind == KindNone {
		return false
	}

	deadline, hadDeadline := s.expires[oldKey]

	var strVal string
	var listVal []string
	var hashVal map[string]string
	switch kind {
	case KindString:
		strVal = s.strings[oldKey]
	case KindList:
		listVal = s.lists[oldKey]
	case KindHash:
		hashVal = s.hashes[oldKey]
	default:
		assert.True(false, "Rename: unreachable kind")
	}

	s.removeAllLocked(oldKey)
	s.removeAllLocked(newKey)

	switch kind {
	case KindString:
		s.strings[newKey] = strVal
	case KindList:
		s.lists[newKey] = listVal
	case KindHash:
		s.hashes[newKey] = hashVal
	}

	if hadDeadline {
		s.expires[newKey] = deadline
	}

	return true
}

// FlushAll clears all four maps.
func (s *Store) FlushAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.strings = make(map[string]string)
	s.lists = make(map[string][]string)
	s.hashes = make(map[string]map[string]string)
	s.expires = make(map[string]time.Time)
}

///////////////////////// list ops /////////////////////////

// normalizeIndex converts a possibly-negative index into an offset from
// the head of a length-n list. ok is false if the resulting offset is
// out of range.
func normalizeIndex(i, n int) (offset int, ok bool) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// makeListableLocked ensures key is safe to hold a list, clearing any
// existing string/hash entry at key first. Must be called with mu held.
func (s *Store) makeListableLocked(key string) {
	if s.kindLocked(key) == KindList {
		return
	}
	s.removeAllLocked(key)
}

// LPush prepends values in argument order (so the last argument ends up
// at position 0), creating the list if absent, and returns the new
// length.
func (s *Store) LPush(key string, values []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	s.makeListableLocked(key)

	list := s.lists[key]
	for _, v := range values {
		list = append([]string{v}, list...)
	}
	s.lists[key] = list
	return len(list)
}

// RPush appends values in argument order, creating the list if absent,
// and returns the new length.
func (s *Store) RPush(key string, values []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	s.makeListableLocked(key)

	list := append(s.lists[key], values...)
	s.lists[key] = list
	return len(list)
}

// LPop removes and returns the head of the list at key. ok is false if
// key is absent, non-list, or the list is empty.
func (s *Store) LPop(key string) (value string, ok bool) {
	return s.listPop(key, true)
}

// RPop removes and returns the tail of the list at key. ok is false if
// key is absent, non-list, or the list is empty.
func (s *Store) RPop(key string) (value string, ok bool) {
	return s.listPop(key, false)
}

func (s *Store) listPop(key string, fromHead bool) (value string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindList {
		return "", false
	}

	list := s.lists[key]
	if len(list) == 0 {
		return "", false
	}

	if fromHead {
		value = list[0]
		s.lists[key] = list[1:]
	} else {
		value = list[len(list)-1]
		s.lists[key] = list[:len(list)-1]
	}
	return value, true
}

// LLen returns the length of the list at key, or 0 if absent or of a
// different type.
func (s *Store) LLen(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindList {
		return 0
	}
	return len(s.lists[key])
}

// LIndex returns the element at index i (negative indices count from the
// tail). ok is false if key is absent, a different type, or the index
// is out of range.
func (s *Store) LIndex(key string, i int) (value string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindList {
		return "", false
	}

	list := s.lists[key]
	offset, inRange := normalizeIndex(i, len(list))
	if !inRange {
		return "", false
	}
	return list[offset], true
}

// LSet replaces the element at index i. Returns ErrIndexOutOfRange if the
// list is absent, a different type, or the index is out of range.
func (s *Store) LSet(key string, i int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindList {
		return ErrIndexOutOfRange
	}

	list := s.lists[key]
	offset, inRange := normalizeIndex(i, len(list))
	if !inRange {
		return ErrIndexOutOfRange
	}
	list[offset] = value
	return nil
}

// LRem removes occurrences of value from the list at key: up to count
// from the head when count > 0, up to |count| from the tail when
// count < 0, or all occurrences when count == 0. Returns the number
// removed.
func (s *Store) LRem(key string, count int, value string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindList {
		return 0
	}

	list := s.lists[key]
	result := make([]string, 0, len(list))
	removed := 0

	switch {
	case count == 0:
		for _, v := range list {
			if v == value {
				removed++
				continue
			}
			result = append(result, v)
		}
	case count > 0:
		for _, v := range list {
			if v == value && removed < count {
				removed++
				continue
			}
			result = append(result, v)
		}
	default:
		limit := -count
		for i := len(list) - 1; i >= 0; i-- {
			if list[i] == value && removed < limit {
				removed++
				continue
			}
			result = append([]string{list[i]}, result...)
		}
	}

	s.lists[key] = result
	return removed
}

// LGet returns a copy of all elements of the list at key (empty if
// absent or of a different type). A non-standard convenience operation,
// per spec.md §4.2.
func (s *Store) LGet(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindList {
		return []string{}
	}

	list := s.lists[key]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

///////////////////////// hash ops /////////////////////////

// makeHashableLocked ensures key is safe to hold a hash, clearing any
// existing string/list entry at key first. Must be called with mu held.
func (s *Store) makeHashableLocked(key string) map[string]string {
	if s.kindLocked(key) != KindHash {
		s.removeAllLocked(key)
		s.hashes[key] = make(map[string]string)
	}
	return s.hashes[key]
}

// HSet sets field on the hash at key, creating the hash if absent. It
// reports nothing about whether the field was new or updated; the HSET
// command always replies 1 (spec.md §9).
func (s *Store) HSet(key, field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	hash := s.makeHashableLocked(key)
	hash[field] = value
}

// HGet returns the value of field in the hash at key. ok is false if the
// hash, the key, or the field is absent.
func (s *Store) HGet(key, field string) (value string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindHash {
		return "", false
	}
	value, ok = s.hashes[key][field]
	return value, ok
}

// HExists reports whether field exists in the hash at key.
func (s *Store) HExists(key, field string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindHash {
		return false
	}
	_, ok := s.hashes[key][field]
	return ok
}

// HDel removes field from the hash at key, returning 1 if it was
// present, else 0.
func (s *Store) HDel(key, field string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindHash {
		return 0
	}
	if _, ok := s.hashes[key][field]; !ok {
		return 0
	}
	delete(s.hashes[key], field)
	return 1
}

// HLen returns the number of fields in the hash at key, or 0 if absent.
func (s *Store) HLen(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindHash {
		return 0
	}
	return len(s.hashes[key])
}

// HKeys returns the field names of the hash at key (empty if absent).
func (s *Store) HKeys(key string) []string {
	return s.hashFieldsOrValues(key, true)
}

// HVals returns the field values of the hash at key (empty if absent).
func (s *Store) HVals(key string) []string {
	return s.hashFieldsOrValues(key, false)
}

func (s *Store) hashFieldsOrValues(key string, wantFields bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindHash {
		return []string{}
	}

	hash := s.hashes[key]
	out := make([]string, 0, len(hash))
	for f, v := range hash {
		if wantFields {
			out = append(out, f)
		} else {
			out = append(out, v)
		}
	}
	return out
}

// HGetAll returns alternating field, value pairs for the hash at key.
func (s *Store) HGetAll(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindHash {
		return []string{}
	}

	hash := s.hashes[key]
	out := make([]string, 0, 2*len(hash))
	for f, v := range hash {
		out = append(out, f, v)
	}
	return out
}

// HMSet sets all supplied field/value pairs on the hash at key, creating
// the hash if absent.
func (s *Store) HMSet(key string, pairs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	hash := s.makeHashableLocked(key)
	for f, v := range pairs {
		hash[f] = v
	}
}

// HSetNx sets key[field] = value only when the hash itself already
// exists, returning true; returns false when the hash is absent. This
// intentionally mirrors the observed (non-canonical) source behavior
// recorded in spec.md §9 rather than the usual "only if field absent"
// semantics.
func (s *Store) HSetNx(key, field, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if s.kindLocked(key) != KindHash {
		return false
	}
	s.hashes[key][field] = value
	return true
}

// HRandField returns n values sampled uniformly with replacement from
// the hash at key. Returns an empty slice if key is absent or n <= 0.
// No guarantee of distinct samples.
func (s *Store) HRandField(key string, n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if n <= 0 || s.kindLocked(key) != KindHash {
		return []string{}
	}

	hash := s.hashes[key]
	if len(hash) == 0 {
		return []string{}
	}

	values := make([]string, 0, len(hash))
	for _, v := range hash {
		values = append(values, v)
	}

	out := make([]string, n)
	for i := range out {
		out[i] = values[s.rnd.Intn(len(values))]
	}
	return out
}
