// Package auth resolves bearer API keys to mailbox accounts.
package auth

import (
	"crypto/hmac"
	"fmt"
	"strings"

	"github.com/mailfold/mailfold/internal/provider"
)

// Account identifies an authenticated mailbox owner and which provider
// backs it.
type Account struct {
	ID       string
	Provider provider.Kind
}

type entry struct {
	key     string
	account Account
}

// Keyring holds the configured API keys. Lookup compares every configured
// key in constant time so timing does not reveal which prefix matched.
type Keyring struct {
	entries []entry
}

// ParseKeys builds a Keyring from a comma-separated list of
// "key:account:provider" entries.
func ParseKeys(s string) (*Keyring, error) {
	kr := &Keyring{}
	for _, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed api key entry %q, want key:account:provider", raw)
		}
		kind := provider.Kind(parts[2])
		if kind != provider.KindGoogle && kind != provider.KindGraph {
			return nil, fmt.Errorf("unknown provider %q in api key entry", parts[2])
		}
		kr.entries = append(kr.entries, entry{
			key:     parts[0],
			account: Account{ID: parts[1], Provider: kind},
		})
	}
	return kr, nil
}

// Resolve returns the account for the given bearer key.
func (k *Keyring) Resolve(key string) (Account, bool) {
	if key == "" {
		return Account{}, false
	}
	var (
		found Account
		ok    bool
	)
	for _, e := range k.entries {
		if hmac.Equal([]byte(e.key), []byte(key)) {
			found, ok = e.account, true
		}
	}
	return found, ok
}

// Len reports how many keys are configured.
func (k *Keyring) Len() int {
	return len(k.entries)
}
