package auth

import (
	"testing"

	"github.com/mailfold/mailfold/internal/provider"
)

func TestParseKeys(t *testing.T) {
	kr, err := ParseKeys("k1:acct-1:google, k2:acct-2:graph ,")
	if err != nil {
		t.Fatalf("parse keys: %v", err)
	}
	if kr.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", kr.Len())
	}

	acct, ok := kr.Resolve("k2")
	if !ok {
		t.Fatalf("k2 not resolved")
	}
	if acct.ID != "acct-2" || acct.Provider != provider.KindGraph {
		t.Fatalf("unexpected account: %+v", acct)
	}

	if _, ok := kr.Resolve("k3"); ok {
		t.Fatalf("unknown key must not resolve")
	}
	if _, ok := kr.Resolve(""); ok {
		t.Fatalf("empty key must not resolve")
	}
}

func TestParseKeysRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"k1:acct-1", "k1:acct-1:imap", ":acct:google", "k1::google"} {
		if _, err := ParseKeys(bad); err == nil {
			t.Errorf("entry %q should be rejected", bad)
		}
	}
}

func TestEmptyKeyring(t *testing.T) {
	kr, err := ParseKeys("")
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if kr.Len() != 0 {
		t.Fatalf("expected empty keyring")
	}
}
