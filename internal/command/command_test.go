package command

import (
	"testing"
	"time"

	"github.com/tarnaldo88/Redis-Server/internal/store"
)

func TestPing(t *testing.T) {
	s := store.New()
	got := Dispatch([]string{"PING"}, s)
	if string(got) != "+PONG\r\n" {
		t.Fatalf("PING = %q, want %q", got, "+PONG\r\n")
	}
}

func TestPingWithMessage(t *testing.T) {
	s := store.New()
	got := Dispatch([]string{"PING", "hello"}, s)
	if string(got) != "+hello\r\n" {
		t.Fatalf("PING hello = %q, want %q", got, "+hello\r\n")
	}
}

func TestSetThenGet(t *testing.T) {
	s := store.New()

	got := Dispatch([]string{"SET", "foo", "bar"}, s)
	if string(got) != "+OK\r\n" {
		t.Fatalf("SET = %q, want +OK", got)
	}

	got = Dispatch([]string{"GET", "foo"}, s)
	if string(got) != "$3\r\nbar\r\n" {
		t.Fatalf("GET foo = %q, want $3\\r\\nbar\\r\\n", got)
	}
}

func TestGetMissingReturnsNilBulk(t *testing.T) {
	s := store.New()
	got := Dispatch([]string{"GET", "missing"}, s)
	if string(got) != "$-1\r\n" {
		t.Fatalf("GET missing = %q, want $-1\\r\\n", got)
	}
}

// Scenario 3 from spec.md §8.
func TestListScenario(t *testing.T) {
	s := store.New()

	if got := Dispatch([]string{"RPUSH", "L", "a", "b", "c"}, s); string(got) != ":3\r\n" {
		t.Fatalf("RPUSH = %q, want :3", got)
	}
	if got := Dispatch([]string{"LINDEX", "L", "-1"}, s); string(got) != "$1\r\nc\r\n" {
		t.Fatalf("LINDEX -1 = %q, want $1\\r\\nc\\r\\n", got)
	}
	if got := Dispatch([]string{"LREM", "L", "0", "a"}, s); string(got) != ":1\r\n" {
		t.Fatalf("LREM = %q, want :1", got)
	}
	if got := Dispatch([]string{"LLEN", "L"}, s); string(got) != ":2\r\n" {
		t.Fatalf("LLEN = %q, want :2", got)
	}
}

// Scenario 4 from spec.md §8.
func TestHashScenario(t *testing.T) {
	s := store.New()

	if got := Dispatch([]string{"HSET", "H", "f1", "v1"}, s); string(got) != ":1\r\n" {
		t.Fatalf("HSET f1 = %q, want :1", got)
	}
	if got := Dispatch([]string{"HSET", "H", "f2", "v2"}, s); string(got) != ":1\r\n" {
		t.Fatalf("HSET f2 = %q, want :1", got)
	}

	got := Dispatch([]string{"HGETALL", "H"}, s)
	want1 := "*4\r\n$2\r\nf1\r\n$2\r\nv1\r\n$2\r\nf2\r\n$2\r\nv2\r\n"
	want2 := "*4\r\n$2\r\nf2\r\n$2\r\nv2\r\n$2\r\nf1\r\n$2\r\nv1\r\n"
	if string(got) != want1 && string(got) != want2 {
		t.Fatalf("HGETALL = %q, want one of %q or %q", got, want1, want2)
	}
}

func TestExpireScenario(t *testing.T) {
	s := store.New()
	now := fixedClock()
	s.SetClock(now.Now)

	Dispatch([]string{"SET", "x", "1"}, s)
	if got := Dispatch([]string{"EXPIRE", "x", "1"}, s); string(got) != "+OK\r\n" {
		t.Fatalf("EXPIRE = %q, want +OK", got)
	}

	now.advance(1100) // 1.1s

	if got := Dispatch([]string{"GET", "x"}, s); string(got) != "$-1\r\n" {
		t.Fatalf("GET x after expiry = %q, want $-1\\r\\n", got)
	}
	if got := Dispatch([]string{"TYPE", "x"}, s); string(got) != "+none\r\n" {
		t.Fatalf("TYPE x after expiry = %q, want +none\\r\\n", got)
	}
}

func TestRenameScenario(t *testing.T) {
	s := store.New()

	Dispatch([]string{"SET", "a", "1"}, s)
	if got := Dispatch([]string{"RENAME", "a", "b"}, s); string(got) != "+OK\r\n" {
		t.Fatalf("RENAME = %q, want +OK", got)
	}
	if got := Dispatch([]string{"GET", "a"}, s); string(got) != "$-1\r\n" {
		t.Fatalf("GET a after rename = %q, want $-1\\r\\n", got)
	}
	if got := Dispatch([]string{"GET", "b"}, s); string(got) != "$1\r\n1\r\n" {
		t.Fatalf("GET b after rename = %q, want $1\\r\\n1\\r\\n", got)
	}
}

func TestRenameMissingKeyError(t *testing.T) {
	s := store.New()
	got := Dispatch([]string{"RENAME", "missing", "b"}, s)
	if string(got) != "-Error: Key not found\r\n" {
		t.Fatalf("RENAME missing = %q, want -Error: Key not found", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	s := store.New()
	got := Dispatch([]string{"BOGUS"}, s)
	if string(got) != "-ERR unknown command 'BOGUS'\r\n" {
		t.Fatalf("unknown command = %q", got)
	}
}

func TestCommandNameIsCaseInsensitive(t *testing.T) {
	s := store.New()
	got := Dispatch([]string{"ping"}, s)
	if string(got) != "+PONG\r\n" {
		t.Fatalf("lowercase ping = %q, want +PONG", got)
	}
}

func TestArityErrors(t *testing.T) {
	s := store.New()
	cases := [][]string{
		{"SET", "onlykey"},
		{"GET"},
		{"EXPIRE", "k"},
		{"RENAME", "onlyold"},
		{"LPUSH", "k"},
		{"HSET", "k", "f"},
	}
	for _, tokens := range cases {
		got := Dispatch(tokens, s)
		want := "-ERR wrong number of arguments for '" + tokens[0] + "' command\r\n"
		if string(got) != want {
			t.Errorf("Dispatch(%v) = %q, want %q", tokens, got, want)
		}
	}
}

func TestLSetOutOfRangeError(t *testing.T) {
	s := store.New()
	got := Dispatch([]string{"LSET", "missing", "0", "x"}, s)
	if string(got) != "-Error: Index out of range\r\n" {
		t.Fatalf("LSET out of range = %q", got)
	}
}

func TestLIndexParseError(t *testing.T) {
	s := store.New()
	got := Dispatch([]string{"LINDEX", "l", "notanumber"}, s)
	if string(got) != "-Error: invalid index\r\n" {
		t.Fatalf("LINDEX parse error = %q", got)
	}
}

func TestHMSetOddArityError(t *testing.T) {
	s := store.New()
	got := Dispatch([]string{"HMSET", "h", "f1", "v1", "f2"}, s)
	if string(got) != "-Error: HMSET requires key followed by field value pairs\r\n" {
		t.Fatalf("HMSET odd arity = %q", got)
	}
}

func TestHMSetEvenArity(t *testing.T) {
	s := store.New()
	got := Dispatch([]string{"HMSET", "h", "f1", "v1", "f2", "v2"}, s)
	if string(got) != ":1\r\n" {
		t.Fatalf("HMSET = %q, want :1", got)
	}
	if v, ok := s.HGet("h", "f2"); !ok || v != "v2" {
		t.Fatalf("HGet(h,f2) = %q, %v; want v2, true", v, ok)
	}
}

func TestHSetNxDeviationFromCanonicalRedis(t *testing.T) {
	s := store.New()

	got := Dispatch([]string{"HSETNX", "h", "f", "v"}, s)
	if string(got) != ":0\r\n" {
		t.Fatalf("HSETNX on absent hash = %q, want :0", got)
	}

	Dispatch([]string{"HSET", "h", "other", "x"}, s)
	got = Dispatch([]string{"HSETNX", "h", "f", "v"}, s)
	if string(got) != ":1\r\n" {
		t.Fatalf("HSETNX on existing hash = %q, want :1", got)
	}
}

func TestDelAndUnlinkAreAliases(t *testing.T) {
	s := store.New()
	Dispatch([]string{"SET", "a", "1"}, s)
	Dispatch([]string{"SET", "b", "2"}, s)

	got := Dispatch([]string{"UNLINK", "a", "b", "missing"}, s)
	if string(got) != ":2\r\n" {
		t.Fatalf("UNLINK a b missing = %q, want :2", got)
	}
}

// clockBox lets tests control the store's notion of "now" without
// depending on wall-clock timing.
type clockBox struct {
	t time.Time
}

func fixedClock() *clockBox {
	return &clockBox{t: time.Unix(0, 0)}
}

func (c *clockBox) Now() time.Time {
	return c.t
}

func (c *clockBox) advance(ms int64) {
	c.t = c.t.Add(time.Duration(ms) * time.Millisecond)
}
