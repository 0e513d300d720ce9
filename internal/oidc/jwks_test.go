package oidc

import (
	"context"
	"errors"
	"testing"
)

func TestKeyCache_FullSetCachedOnMiss(t *testing.T) {
	idp := newFakeIdP(t, "kid-a", "kid-b")
	c := newTestCache()
	mc := NewMetadataCache(c, nil)
	kc := NewKeyCache(c, mc, nil)

	keyA, err := kc.Get(context.Background(), idp.srv.URL, "kid-a")
	if err != nil {
		t.Fatalf("Get kid-a err: %v", err)
	}
	if keyA.KeyID != "kid-a" {
		t.Fatalf("kid = %q", keyA.KeyID)
	}

	// el fetch de A dejó B caliente: pedir B no toca la red
	if _, err := kc.Get(context.Background(), idp.srv.URL, "kid-b"); err != nil {
		t.Fatalf("Get kid-b err: %v", err)
	}
	if hits := idp.jwksHits.Load(); hits != 1 {
		t.Fatalf("jwks hits = %d, want 1", hits)
	}
}

func TestKeyCache_UnknownKidAfterRefresh(t *testing.T) {
	idp := newFakeIdP(t, "kid-a")
	c := newTestCache()
	kc := NewKeyCache(c, NewMetadataCache(c, nil), nil)

	_, err := kc.Get(context.Background(), idp.srv.URL, "kid-ghost")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("err = %v, want ErrKeyNotFound", err)
	}
	// se refrescó el set igual: un hit al endpoint
	if hits := idp.jwksHits.Load(); hits != 1 {
		t.Fatalf("jwks hits = %d, want 1", hits)
	}
}

func TestKeyCache_NewKidForcesRefetch(t *testing.T) {
	idp := newFakeIdP(t, "kid-old")
	c := newTestCache()
	kc := NewKeyCache(c, NewMetadataCache(c, nil), nil)

	if _, err := kc.Get(context.Background(), idp.srv.URL, "kid-old"); err != nil {
		t.Fatalf("Get err: %v", err)
	}

	// rotación: el provider publica una llave nueva
	idp2kid := "kid-new"
	idp.keys[idp2kid] = idp.keys["kid-old"]

	if _, err := kc.Get(context.Background(), idp.srv.URL, idp2kid); err != nil {
		t.Fatalf("Get new kid err: %v", err)
	}
	if hits := idp.jwksHits.Load(); hits != 2 {
		t.Fatalf("jwks hits = %d, want 2 (one per miss)", hits)
	}
}
