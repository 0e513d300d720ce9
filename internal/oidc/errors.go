package oidc

import "errors"

// Taxonomía de fallas hablando con el identity provider. El caller decide
// cómo exponerlas: unavailable → 503, protocol → 401 con detalle en logs.
var (
	// ErrProviderUnavailable: fallo de red o timeout. Retryable por el caller.
	ErrProviderUnavailable = errors.New("oidc: identity provider unreachable")

	// ErrProviderProtocol: el provider respondió algo que no cumple el
	// protocolo (discovery incompleto, JSON inválido, firma/iss/aud mal).
	ErrProviderProtocol = errors.New("oidc: identity provider protocol error")

	// ErrKeyNotFound: el kid pedido no existe ni después de refrescar el JWKS.
	ErrKeyNotFound = errors.New("oidc: signing key not found in jwks")
)
