package domain

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
)

func TestNewIDShapeAndUniqueness(t *testing.T) {
	a := NewID("agr")
	b := NewID("agr")
	if a == b {
		t.Fatalf("ids must be unique")
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("generated id invalid: %v", err)
	}
	if err := ID("agr_zz").Validate(); err == nil {
		t.Fatalf("short id must be invalid")
	}
	if err := ID("no-prefix").Validate(); err == nil {
		t.Fatalf("prefixless id must be invalid")
	}
}

func TestAddressRoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	addr := AddressFromPublicKey(pub)
	if err := addr.Validate(); err != nil {
		t.Fatalf("derived address invalid: %v", err)
	}
	got, err := addr.PublicKey()
	if err != nil {
		t.Fatalf("recover key: %v", err)
	}
	if !pub.Equal(got) {
		t.Fatalf("recovered key differs")
	}
	if err := Address("acct_nothex").Validate(); err == nil {
		t.Fatalf("bad address must be invalid")
	}
}
