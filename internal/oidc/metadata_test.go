package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMetadataCache_FetchAndCache(t *testing.T) {
	idp := newFakeIdP(t, "k1")
	mc := NewMetadataCache(newTestCache(), nil)

	md, err := mc.Get(context.Background(), idp.srv.URL)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if md.JWKSURI != idp.srv.URL+"/jwks" {
		t.Fatalf("jwks_uri = %q", md.JWKSURI)
	}

	// segundo Get: hit de cache, cero red
	if _, err := mc.Get(context.Background(), idp.srv.URL); err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if hits := idp.discoveryHits.Load(); hits != 1 {
		t.Fatalf("discovery hits = %d, want 1", hits)
	}
}

func TestMetadataCache_MissingEndpointsIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 "http://x",
			"authorization_endpoint": "http://x/auth",
			// sin token_endpoint ni jwks_uri
		})
	}))
	defer srv.Close()

	mc := NewMetadataCache(newTestCache(), nil)
	_, err := mc.Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrProviderProtocol) {
		t.Fatalf("err = %v, want ErrProviderProtocol", err)
	}
}

func TestMetadataCache_Non2xxIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	mc := NewMetadataCache(newTestCache(), nil)
	if _, err := mc.Get(context.Background(), srv.URL); !errors.Is(err, ErrProviderProtocol) {
		t.Fatalf("err = %v, want ErrProviderProtocol", err)
	}
}

func TestMetadataCache_NetworkErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nadie escucha

	mc := NewMetadataCache(newTestCache(), nil)
	if _, err := mc.Get(context.Background(), url); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestMetadataCache_BadDocumentNotCached(t *testing.T) {
	// primer request devuelve un documento inválido, el segundo uno bueno:
	// el error no debe quedar cacheado
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_ = json.NewEncoder(w).Encode(map[string]string{"issuer": "http://x"})
			return
		}
		base := "http://" + r.Host
		_ = json.NewEncoder(w).Encode(Metadata{
			Issuer:        base,
			AuthEndpoint:  base + "/auth",
			TokenEndpoint: base + "/token",
			JWKSURI:       base + "/jwks",
		})
	}))
	defer srv.Close()

	mc := NewMetadataCache(newTestCache(), nil)
	if _, err := mc.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for invalid document")
	}
	md, err := mc.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if md.TokenEndpoint == "" {
		t.Fatal("expected a complete document on retry")
	}
}
