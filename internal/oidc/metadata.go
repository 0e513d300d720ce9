package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/potatoreg/internal/cache"
)

// metadataTTL es fijo: los discovery documents cambian casi nunca.
const metadataTTL = time.Hour

// Metadata es el subset del discovery document que usamos.
type Metadata struct {
	Issuer        string `json:"issuer"`
	AuthEndpoint  string `json:"authorization_endpoint"`
	TokenEndpoint string `json:"token_endpoint"`
	JWKSURI       string `json:"jwks_uri"`
}

// MetadataCache resuelve y cachea discovery documents por issuer URL.
// Misses concurrentes sobre el mismo issuer pueden fetchear en paralelo;
// el último write gana (no hay single-flight, el fetch es barato e idempotente).
type MetadataCache struct {
	cache cache.Cache
	http  *http.Client
}

func NewMetadataCache(c cache.Cache, client *http.Client) *MetadataCache {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &MetadataCache{cache: c, http: client}
}

// Get devuelve el discovery document del issuer. Cache hit no toca la red.
// Un documento sin los endpoints requeridos es ErrProviderProtocol y NO se
// cachea: el próximo request reintenta el fetch.
func (m *MetadataCache) Get(ctx context.Context, issuerURL string) (*Metadata, error) {
	key := "oidc:meta:" + issuerURL
	if raw, ok := m.cache.Get(key); ok {
		var md Metadata
		if err := json.Unmarshal(raw, &md); err == nil {
			return &md, nil
		}
		// entrada corrupta: descartar y refetchear
		m.cache.Delete(key)
	}

	wellKnown := strings.TrimSuffix(issuerURL, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderProtocol, err)
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: discovery http %d", ErrProviderProtocol, resp.StatusCode)
	}
	var md Metadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("%w: decode discovery: %v", ErrProviderProtocol, err)
	}
	if md.AuthEndpoint == "" || md.TokenEndpoint == "" || md.JWKSURI == "" {
		return nil, fmt.Errorf("%w: discovery document missing required endpoints", ErrProviderProtocol)
	}

	if raw, err := json.Marshal(&md); err == nil {
		m.cache.Set(key, raw, metadataTTL)
	}
	return &md, nil
}
