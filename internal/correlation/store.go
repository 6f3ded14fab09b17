// Package correlation extracts values from response bodies and serves them
// to later requests, per user session or process-wide.
package correlation

import (
	"regexp"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// Scope selects where an extracted value is stored.
type Scope string

const (
	// ScopeSession partitions values by user identity.
	ScopeSession Scope = "session"
	// ScopeGlobal shares one value across every user context.
	ScopeGlobal Scope = "global"
)

// Rule declares one extraction against a response body. Exactly one of
// Regex or JSONPath should be set; Regex wins when both are.
type Rule struct {
	Regex    string `yaml:"regex"`
	JSONPath string `yaml:"jsonPath"`
	Variable string `yaml:"variable"`
	Scope    Scope  `yaml:"scope"`
}

// Store holds correlation entries. Entries are overwritten by later
// extractions with the same key and never deleted; their lifetime is the
// process (global scope) or the user context (session scope).
type Store struct {
	globalMu sync.Mutex
	global   map[string]string

	sessionMu sync.Mutex
	sessions  map[string]map[string]string
}

// NewStore creates an empty correlation store.
func NewStore() *Store {
	return &Store{
		global:   make(map[string]string),
		sessions: make(map[string]map[string]string),
	}
}

// Extract applies the rule's pattern to the body. A regex with a capture
// group stores the first group, otherwise the full match. No match stores
// nothing and returns false; the caller falls through to other sources.
func (s *Store) Extract(body []byte, rule Rule, userID string) (string, bool) {
	var value string
	var ok bool

	switch {
	case rule.Regex != "":
		value, ok = matchRegex(body, rule.Regex)
	case rule.JSONPath != "":
		value, ok = matchJSONPath(body, rule.JSONPath)
	}
	if !ok {
		return "", false
	}

	scope := rule.Scope
	if scope == "" {
		scope = ScopeSession
	}
	s.set(rule.Variable, value, scope, userID)
	return value, true
}

// Lookup returns the stored value for the variable in the given scope.
func (s *Store) Lookup(name string, scope Scope, userID string) (string, bool) {
	if scope == ScopeGlobal {
		s.globalMu.Lock()
		defer s.globalMu.Unlock()
		v, ok := s.global[name]
		return v, ok
	}
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	session, ok := s.sessions[userID]
	if !ok {
		return "", false
	}
	v, ok := session[name]
	return v, ok
}

// Resolve walks the lookup precedence for template resolution:
// session scope first, then global scope.
func (s *Store) Resolve(name, userID string) (string, bool) {
	if v, ok := s.Lookup(name, ScopeSession, userID); ok {
		return v, true
	}
	return s.Lookup(name, ScopeGlobal, userID)
}

func (s *Store) set(name, value string, scope Scope, userID string) {
	if scope == ScopeGlobal {
		s.globalMu.Lock()
		s.global[name] = value
		s.globalMu.Unlock()
		return
	}
	s.sessionMu.Lock()
	session, ok := s.sessions[userID]
	if !ok {
		session = make(map[string]string)
		s.sessions[userID] = session
	}
	session[name] = value
	s.sessionMu.Unlock()
}

// matchRegex returns the first capture group if the pattern declares one,
// otherwise the full match.
func matchRegex(body []byte, pattern string) (string, bool) {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return "", false
	}
	match := regex.FindSubmatch(body)
	if match == nil {
		return "", false
	}
	if len(match) > 1 {
		return string(match[1]), true
	}
	return string(match[0]), true
}

// matchJSONPath supports $.field and bare field syntax on top of gjson.
func matchJSONPath(body []byte, path string) (string, bool) {
	if strings.HasPrefix(path, "$.") {
		path = path[2:]
	} else if path == "$" {
		path = "@this"
	}
	result := gjson.GetBytes(body, path)
	if !result.Exists() {
		return "", false
	}
	return result.String(), true
}
