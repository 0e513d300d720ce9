package oidc

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/potatoreg/internal/cache"
)

// fakeIdP levanta un identity provider mínimo: discovery, JWKS y token
// endpoint. Los contadores permiten verificar cuántas veces se tocó la red.
type fakeIdP struct {
	srv  *httptest.Server
	keys map[string]*rsa.PrivateKey // kid -> key

	discoveryHits atomic.Int32
	jwksHits      atomic.Int32

	// idToken es lo que devuelve el token endpoint.
	idToken string
}

func newFakeIdP(t *testing.T, kids ...string) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{keys: map[string]*rsa.PrivateKey{}}
	for _, kid := range kids {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("rsa.GenerateKey: %v", err)
		}
		idp.keys[kid] = key
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		idp.discoveryHits.Add(1)
		_ = json.NewEncoder(w).Encode(Metadata{
			Issuer:        idp.srv.URL,
			AuthEndpoint:  idp.srv.URL + "/auth",
			TokenEndpoint: idp.srv.URL + "/token",
			JWKSURI:       idp.srv.URL + "/jwks",
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		idp.jwksHits.Add(1)
		var set jose.JSONWebKeySet
		for kid, key := range idp.keys {
			set.Keys = append(set.Keys, jose.JSONWebKey{
				Key: &key.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig",
			})
		}
		_ = json.NewEncoder(w).Encode(set)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at", "token_type": "Bearer", "id_token": idp.idToken,
		})
	})
	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)
	return idp
}

// signIDToken firma un id_token RS256 con la llave del kid dado.
func (f *fakeIdP) signIDToken(t *testing.T, kid, clientID, sub string, extra map[string]any) string {
	t.Helper()
	key, ok := f.keys[kid]
	if !ok {
		t.Fatalf("unknown kid %q", kid)
	}
	claims := jwtv5.MapClaims{
		"iss": f.srv.URL,
		"aud": clientID,
		"sub": sub,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("signing id_token: %v", err)
	}
	return signed
}

func newTestCache() cache.Cache {
	return cache.NewMemory(time.Minute, "")
}
