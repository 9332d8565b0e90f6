// Package command implements the server's command surface: a static
// dispatch table from uppercased command name to handler, each handler
// validating arity, calling into the store, and encoding a reply —
// the static-table shape spec.md §9 recommends in place of a
// conditional chain, grounded on the teacher's processor.go command
// switch but restructured around a map[string]HandlerFunc.
package command

import (
	"strconv"
	"strings"

	"github.com/tarnaldo88/Redis-Server/internal/resp"
	"github.com/tarnaldo88/Redis-Server/internal/store"
)

// HandlerFunc executes one already-parsed command against st. tokens[0]
// is the uppercased command name; tokens[1:] are its arguments. The
// return value is an already-encoded RESP reply ready to write to the
// connection.
type HandlerFunc func(tokens []string, st *store.Store) []byte

// Dispatch looks up tokens[0] (case-insensitively) in the command table
// and invokes its handler. tokens must be non-empty; callers (the
// connection loop) only call Dispatch for frames the framer actually
// produced tokens for.
func Dispatch(tokens []string, st *store.Store) []byte {
	name := strings.ToUpper(tokens[0])
	handler, ok := table[name]
	if !ok {
		return resp.EncodeError("ERR unknown command '" + tokens[0] + "'")
	}
	normalized := append([]string{name}, tokens[1:]...)
	return handler(normalized, st)
}

// table is the fixed command-name -> handler map described in
// spec.md §6 and §9.
var table = map[string]HandlerFunc{
	"PING":       handlePing,
	"ECHO":       handleEcho,
	"FLUSHALL":   handleFlushAll,
	"SET":        handleSet,
	"GET":        handleGet,
	"GETSET":     handleGetSet,
	"KEYS":       handleKeys,
	"TYPE":       handleType,
	"DEL":        handleDel,
	"UNLINK":     handleDel,
	"EXPIRE":     handleExpire,
	"RENAME":     handleRename,
	"LLEN":       handleLLen,
	"LGET":       handleLGet,
	"LINDEX":     handleLIndex,
	"LSET":       handleLSet,
	"LREM":       handleLRem,
	"LPUSH":      handleLPush,
	"RPUSH":      handleRPush,
	"LPOP":       handleLPop,
	"RPOP":       handleRPop,
	"HSET":       handleHSet,
	"HGET":       handleHGet,
	"HEXISTS":    handleHExists,
	"HDEL":       handleHDel,
	"HLEN":       handleHLen,
	"HKEYS":      handleHKeys,
	"HVALS":      handleHVals,
	"HGETALL":    handleHGetAll,
	"HMSET":      handleHMSet,
	"HSETNX":     handleHSetNx,
	"HRANDFIELD": handleHRandField,
}

// --- error helpers, wire forms fixed by spec.md §7 ---

func errArity(name string) []byte {
	return resp.EncodeError("ERR wrong number of arguments for '" + name + "' command")
}

func errParseInt() []byte {
	return resp.EncodeError("Error: invalid index")
}

func errKeyNotFound() []byte {
	return resp.EncodeError("Error: Key not found")
}

func errHMSetShape() []byte {
	return resp.EncodeError("Error: HMSET requires key followed by field value pairs")
}

func errBounds() []byte {
	return resp.EncodeError("Error: " + store.ErrIndexOutOfRange.Error())
}

// --- connection-level ---

func handlePing(tokens []string, st *store.Store) []byte {
	if len(tokens) >= 2 {
		return resp.EncodeSimpleString(tokens[1])
	}
	return resp.EncodeSimpleString("PONG")
}

func handleEcho(tokens []string, st *store.Store) []byte {
	if len(tokens) < 2 {
		return errArity(tokens[0])
	}
	return resp.EncodeBulk(tokens[1])
}

// --- generic ---

func handleFlushAll(tokens []string, st *store.Store) []byte {
	st.FlushAll()
	return resp.EncodeSimpleString("OK")
}

func handleKeys(tokens []string, st *store.Store) []byte {
	return resp.EncodeBulkArray(st.Keys())
}

func handleType(tokens []string, st *store.Store) []byte {
	if len(tokens) < 2 {
		return errArity(tokens[0])
	}
	return resp.EncodeSimpleString(st.Type(tokens[1]).String())
}

func handleDel(tokens []string, st *store.Store) []byte {
	if len(tokens) < 2 {
		return errArity(tokens[0])
	}
	n := 0
	for _, key := range tokens[1:] {
		n += st.Del(key)
	}
	return resp.EncodeInteger(n)
}

func handleExpire(tokens []string, st *store.Store) []byte {
	if len(tokens) < 3 {
		return errArity(tokens[0])
	}
	seconds, err := strconv.Atoi(tokens[2])
	if err != nil {
		return errParseInt()
	}
	if !st.Expire(tokens[1], seconds) {
		return errKeyNotFound()
	}
	return resp.EncodeSimpleString("OK")
}

func handleRename(tokens []string, st *store.Store) []byte {
	if len(tokens) < 3 {
		return errArity(tokens[0])
	}
	if !st.Rename(tokens[1], tokens[2]) {
		return errKeyNotFound()
	}
	return resp.EncodeSimpleString("OK")
}

// --- string ---

func handleSet(tokens []string, st *store.Store) []byte {
	if len(tokens) < 3 {
		return errArity(tokens[0])
	}
	st.Set(tokens[1], tokens[2])
	return resp.EncodeSimpleString("OK")
}

func handleGet(tokens []string, st *store.Store) []byte {
	if len(tokens) < 2 {
		return errArity(tokens[0])
	}
	v, ok := st.Get(tokens[1])
	if !ok {
		return resp.EncodeNilBulk()
	}
	return resp.EncodeBulk(v)
}

func handleGetSet(tokens []string, st *store.Store) []byte {
	if len(tokens) < 3 {
		return errArity(tokens[0])
	}
	prior, ok := st.GetSet(tokens[1], tokens[2])
	if !ok {
		return resp.EncodeNilBulk()
	}
	return resp.EncodeBulk(prior)
}

// --- list ---

func handleLPush(tokens []string, st *store.Store) []byte {
	if len(tokens) < 3 {
		return errArity(tokens[0])
	}
	n := st.LPush(tokens[1], tokens[2:])
	return resp.EncodeInteger(n)
}

func handleRPush(tokens []string, st *store.Store) []byte {
	if len(tokens) < 3 {
		return errArity(tokens[0])
	}
	n := st.RPush(tokens[1], tokens[2:])
	return resp.EncodeInteger(n)
}

func handleLPop(tokens []string, st *store.Store) []byte {
	if len(tokens) < 2 {
		return errArity(tokens[0])
	}
	v, ok := st.LPop(tokens[1])
	if !ok {
		return resp.EncodeNilBulk()
	}
	return resp.EncodeBulk(v)
}

func handleRPop(tokens []string, st *store.Store) []byte {
	if len(tokens) < 2 {
		return errArity(tokens[0])
	}
	v, ok := st.RPop(tokens[1])
	if !ok {
		return resp.EncodeNilBulk()
	}
	return resp.EncodeBulk(v)
}

func handleLLen(tokens []string, st *store.Store) []byte {
	if len(tokens) < 2 {
		return errArity(tokens[0])
	}
	return resp.EncodeInteger(st.LLen(tokens[1]))
}

func handleLIndex(tokens []string, st *store.Store) []byte {
	if len(tokens) < 3 {
		return errArity(tokens[0])
	}
	i, err := strconv.Atoi(tokens[2])
	if err != nil {
		return errParseInt()
	}
	v, ok := st.LIndex(tokens[1], i)
	if !ok {
		return resp.EncodeNilBulk()
	}
	return resp.EncodeBulk(v)
}

func handleLSet(tokens []string, st *store.Store) []byte {
	if len(tokens) < 4 {
		return errArity(tokens[0])
	}
	i, err := strconv.Atoi(tokens[2])
	if err != nil {
		return errParseInt()
	}
	if err := st.LSet(tokens[1], i, tokens[3]); err != nil {
		return errBounds()
	}
	return resp.EncodeSimpleString("OK")
}

func handleLRem(tokens []string, st *store.Store) []byte {
	if len(tokens) < 4 {
		return errArity(tokens[0])
	}
	count, err := strconv.Atoi(tokens[2])
	if err != nil {
		return errParseInt()
	}
	n := st.LRem(tokens[1], count, tokens[3])
	return resp.EncodeInteger(n)
}

func handleLGet(tokens []string, st *store.Store) []byte {
	if len(tokens) < 2 {
		return errArity(tokens[0])
	}
	return resp.EncodeBulkArray(st.LGet(tokens[1]))
}

// --- hash ---

func handleHSet(tokens []string, st *store.Store) []byte {
	if len(tokens) < 4 {
		return errArity(tokens[0])
	}
	st.HSet(tokens[1], tokens[2], tokens[3])
	return resp.EncodeInteger(1)
}

func handleHGet(tokens []string, st *store.Store) []byte {
	if len(tokens) < 3 {
		return errArity(tokens[0])
	}
	v, ok := st.HGet(tokens[1], tokens[2])
	if !ok {
		return resp.EncodeNilBulk()
	}
	return resp.EncodeBulk(v)
}

func handleHExists(tokens []string, st *store.Store) []byte {
	if len(tokens) < 3 {
		return errArity(tokens[0])
	}
	if st.HExists(tokens[1], tokens[2]) {
		return resp.EncodeInteger(1)
	}
	return resp.EncodeInteger(0)
}

func handleHDel(tokens []string, st *store.Store) []byte {
	if len(tokens) < 3 {
		return errArity(tokens[0])
	}
	return resp.EncodeInteger(st.HDel(tokens[1], tokens[2]))
}

func handleHLen(tokens []string, st *store.Store) []byte {
	if len(tokens) < 2 {
		return errArity(tokens[0])
	}
	return resp.EncodeInteger(st.HLen(tokens[1]))
}

func handleHKeys(tokens []string, st *store.Store) []byte {
	if len(tokens) < 2 {
		return errArity(tokens[0])
	}
	return resp.EncodeBulkArray(st.HKeys(tokens[1]))
}

func handleHVals(tokens []string, st *store.Store) []byte {
	if len(tokens) < 2 {
		return errArity(tokens[0])
	}
	return resp.EncodeBulkArray(st.HVals(tokens[1]))
}

func handleHGetAll(tokens []string, st *store.Store) []byte {
	if len(tokens) < 2 {
		return errArity(tokens[0])
	}
	return resp.EncodeBulkArray(st.HGetAll(tokens[1]))
}

func handleHMSet(tokens []string, st *store.Store) []byte {
	if len(tokens) < 4 {
		return errArity(tokens[0])
	}
	rest := tokens[2:]
	if len(rest)%2 != 0 {
		return errHMSetShape()
	}
	pairs := make(map[string]string, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		pairs[rest[i]] = rest[i+1]
	}
	st.HMSet(tokens[1], pairs)
	return resp.EncodeInteger(1)
}

func handleHSetNx(tokens []string, st *store.Store) []byte {
	if len(tokens) < 4 {
		return errArity(tokens[0])
	}
	if st.HSetNx(tokens[1], tokens[2], tokens[3]) {
		return resp.EncodeInteger(1)
	}
	return resp.EncodeInteger(0)
}

func handleHRandField(tokens []string, st *store.Store) []byte {
	if len(tokens) < 3 {
		return errArity(tokens[0])
	}
	n, err := strconv.Atoi(tokens[2])
	if err != nil {
		return errParseInt()
	}
	return resp.EncodeBulkArray(st.HRandField(tokens[1], n))
}
