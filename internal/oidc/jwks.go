package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/potatoreg/internal/cache"
)

// jwksTTL es largo a propósito: los providers rotan llaves con overlap,
// y un kid nuevo fuerza refetch por el camino del miss.
const jwksTTL = 24 * time.Hour

// KeyCache resuelve llaves públicas de firma por kid.
//
// Un miss dispara un fetch del set COMPLETO y cachea cada llave bajo su
// propio kid: pedir la llave A deja también B y C calientes. Eso es lo que
// hace que la rotación de llaves no cueste un fetch por kid.
type KeyCache struct {
	cache    cache.Cache
	metadata *MetadataCache
	http     *http.Client
	sf       singleflight.Group
}

func NewKeyCache(c cache.Cache, md *MetadataCache, client *http.Client) *KeyCache {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &KeyCache{cache: c, metadata: md, http: client}
}

func jwksCacheKey(issuerURL, kid string) string {
	return "oidc:jwk:" + issuerURL + ":" + kid
}

// Get devuelve la llave pública del issuer con ese kid. Hit = cero red.
// Si después de refrescar el set el kid sigue ausente, ErrKeyNotFound
// (distinto de los errores de red/protocolo).
func (k *KeyCache) Get(ctx context.Context, issuerURL, kid string) (*jose.JSONWebKey, error) {
	if jwk := k.cached(issuerURL, kid); jwk != nil {
		return jwk, nil
	}
	// singleflight: N requests con el mismo kid frío hacen UN fetch del set
	if _, err, _ := k.sf.Do(issuerURL, func() (any, error) {
		return nil, k.refresh(ctx, issuerURL)
	}); err != nil {
		return nil, err
	}
	if jwk := k.cached(issuerURL, kid); jwk != nil {
		return jwk, nil
	}
	return nil, fmt.Errorf("%w: kid=%s", ErrKeyNotFound, kid)
}

func (k *KeyCache) cached(issuerURL, kid string) *jose.JSONWebKey {
	raw, ok := k.cache.Get(jwksCacheKey(issuerURL, kid))
	if !ok {
		return nil
	}
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(raw); err != nil || !jwk.Valid() {
		k.cache.Delete(jwksCacheKey(issuerURL, kid))
		return nil
	}
	return &jwk
}

// refresh baja el JWKS completo y upsertea todas las llaves parseables.
func (k *KeyCache) refresh(ctx context.Context, issuerURL string) error {
	md, err := k.metadata.Get(ctx, issuerURL)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, md.JWKSURI, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderProtocol, err)
	}
	resp, err := k.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: jwks http %d", ErrProviderProtocol, resp.StatusCode)
	}
	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("%w: decode jwks: %v", ErrProviderProtocol, err)
	}

	for i := range set.Keys {
		jwk := set.Keys[i]
		if jwk.KeyID == "" || !jwk.Valid() {
			continue
		}
		raw, err := jwk.MarshalJSON()
		if err != nil {
			continue
		}
		k.cache.Set(jwksCacheKey(issuerURL, jwk.KeyID), raw, jwksTTL)
	}
	return nil
}
