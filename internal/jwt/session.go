// Package jwt emite y verifica los tokens de sesión locales del registry.
//
// Son JWT HMAC auto-contenidos: {sub: username, exp, iat}. No se persisten;
// la validez es puramente criptográfica + temporal.
package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken colapsa cualquier fallo de verificación (firma inválida,
// token malformado, expirado, alg inesperado). El caller no debe poder
// distinguir la causa: evita oráculos hacia el cliente.
var ErrInvalidToken = errors.New("jwt: invalid token")

// allowedAlgs es la lista cerrada de algoritmos HMAC aceptados para sesiones.
var allowedAlgs = map[string]*jwtv5.SigningMethodHMAC{
	"HS256": jwtv5.SigningMethodHS256,
	"HS384": jwtv5.SigningMethodHS384,
	"HS512": jwtv5.SigningMethodHS512,
}

// SupportedAlg indica si alg es un algoritmo de sesión soportado.
func SupportedAlg(alg string) bool {
	_, ok := allowedAlgs[alg]
	return ok
}

// Issuer firma y verifica tokens de sesión con un secreto de proceso.
type Issuer struct {
	secret []byte
	method *jwtv5.SigningMethodHMAC
	alg    string
	ttl    time.Duration
}

// NewIssuer crea un Issuer. alg debe estar en la allow-list (HS256/HS384/HS512).
func NewIssuer(secret, alg string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("jwt: empty signing secret")
	}
	m, ok := allowedAlgs[alg]
	if !ok {
		return nil, errors.New("jwt: unsupported signing algorithm " + alg)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{secret: []byte(secret), method: m, alg: alg, ttl: ttl}, nil
}

// Issue emite un token para subject. ttlOverride > 0 reemplaza el TTL default.
func (i *Issuer) Issue(subject string, ttlOverride time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	ttl := i.ttl
	if ttlOverride > 0 {
		ttl = ttlOverride
	}
	exp := now.Add(ttl)

	claims := jwtv5.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	tk := jwtv5.NewWithClaims(i.method, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify valida firma y expiración. Devuelve el subject del claim "sub".
func (i *Issuer) Verify(tokenStr string) (string, error) {
	tok, err := jwtv5.Parse(tokenStr,
		func(t *jwtv5.Token) (any, error) { return i.secret, nil },
		jwtv5.WithValidMethods([]string{i.alg}),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
