package correlation

import (
	"sync"
	"testing"
)

func TestExtract_RegexCaptureGroup(t *testing.T) {
	s := NewStore()
	body := []byte(`{"id":"42"}`)

	value, ok := s.Extract(body, Rule{Regex: `"id":"(\d+)"`, Variable: "OrderId", Scope: ScopeSession}, "U1")
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if value != "42" {
		t.Errorf("expected 42, got %q", value)
	}

	got, ok := s.Lookup("OrderId", ScopeSession, "U1")
	if !ok || got != "42" {
		t.Errorf("session lookup: expected (42,true), got (%q,%v)", got, ok)
	}
	if _, ok := s.Lookup("OrderId", ScopeGlobal, "U1"); ok {
		t.Error("global lookup must miss for a session-scoped entry")
	}
	if _, ok := s.Lookup("OrderId", ScopeSession, "U2"); ok {
		t.Error("session lookup must miss for a different user")
	}
}

func TestExtract_RegexFullMatch(t *testing.T) {
	s := NewStore()
	value, ok := s.Extract([]byte("token=abc123"), Rule{Regex: `abc\d+`, Variable: "Tok"}, "U1")
	if !ok || value != "abc123" {
		t.Errorf("expected full match abc123, got (%q,%v)", value, ok)
	}
}

func TestExtract_NoMatch(t *testing.T) {
	s := NewStore()
	if _, ok := s.Extract([]byte("nothing here"), Rule{Regex: `\d{5}`, Variable: "V"}, "U1"); ok {
		t.Error("expected miss")
	}
	if _, ok := s.Lookup("V", ScopeSession, "U1"); ok {
		t.Error("a miss must not store anything")
	}
}

func TestExtract_InvalidPattern(t *testing.T) {
	s := NewStore()
	if _, ok := s.Extract([]byte("body"), Rule{Regex: `(`, Variable: "V"}, "U1"); ok {
		t.Error("invalid pattern must not extract")
	}
}

func TestExtract_JSONPath(t *testing.T) {
	s := NewStore()
	body := []byte(`{"user":{"id":"77","name":"Ann"}}`)

	value, ok := s.Extract(body, Rule{JSONPath: "$.user.id", Variable: "UserId", Scope: ScopeGlobal}, "U1")
	if !ok || value != "77" {
		t.Fatalf("expected 77, got (%q,%v)", value, ok)
	}
	// Global entries are visible regardless of user identity.
	got, ok := s.Lookup("UserId", ScopeGlobal, "someone-else")
	if !ok || got != "77" {
		t.Errorf("global lookup: expected (77,true), got (%q,%v)", got, ok)
	}
}

func TestExtract_Overwrite(t *testing.T) {
	s := NewStore()
	rule := Rule{Regex: `(\d+)`, Variable: "N", Scope: ScopeSession}
	s.Extract([]byte("1"), rule, "U1")
	s.Extract([]byte("2"), rule, "U1")
	got, _ := s.Lookup("N", ScopeSession, "U1")
	if got != "2" {
		t.Errorf("later extraction must overwrite, got %q", got)
	}
}

func TestResolve_SessionBeforeGlobal(t *testing.T) {
	s := NewStore()
	s.Extract([]byte("global-v"), Rule{Regex: `global-\w+`, Variable: "V", Scope: ScopeGlobal}, "U1")
	s.Extract([]byte("session-v"), Rule{Regex: `session-\w+`, Variable: "V", Scope: ScopeSession}, "U1")

	got, ok := s.Resolve("V", "U1")
	if !ok || got != "session-v" {
		t.Errorf("expected session value first, got (%q,%v)", got, ok)
	}
	got, ok = s.Resolve("V", "U2")
	if !ok || got != "global-v" {
		t.Errorf("expected global fallback for other user, got (%q,%v)", got, ok)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := string(rune('A' + n%5))
			s.Extract([]byte("x=1"), Rule{Regex: `x=(\d)`, Variable: "X", Scope: ScopeSession}, user)
			s.Extract([]byte("y=2"), Rule{Regex: `y=(\d)`, Variable: "Y", Scope: ScopeGlobal}, user)
			s.Resolve("X", user)
		}(i)
	}
	wg.Wait()

	if got, ok := s.Lookup("Y", ScopeGlobal, ""); !ok || got != "2" {
		t.Errorf("expected global Y=2, got (%q,%v)", got, ok)
	}
}
