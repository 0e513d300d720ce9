package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Config describe un identity provider OIDC externo.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// AllowedAlgs es la allow-list de algoritmos de firma para id_tokens.
	// Un header con alg fuera de la lista se rechaza antes de buscar llave.
	AllowedAlgs []string

	// UsernameClaim / EmailClaim: nombres de los claims de donde salen el
	// username y el email. Defaults: preferred_username / email.
	UsernameClaim string
	EmailClaim    string
}

// Provider habla el flujo authorization-code con un IdP: arma la URL de
// autorización, intercambia el code y verifica el id_token resultante.
type Provider struct {
	cfg      Config
	metadata *MetadataCache
	keys     *KeyCache
	http     *http.Client
}

func NewProvider(cfg Config, md *MetadataCache, keys *KeyCache, client *http.Client) *Provider {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if len(cfg.AllowedAlgs) == 0 {
		cfg.AllowedAlgs = []string{"RS256"}
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "email", "profile"}
	}
	if cfg.UsernameClaim == "" {
		cfg.UsernameClaim = "preferred_username"
	}
	if cfg.EmailClaim == "" {
		cfg.EmailClaim = "email"
	}
	return &Provider{cfg: cfg, metadata: md, keys: keys, http: client}
}

// AuthURL construye la URL de autorización con el state dado.
func (p *Provider) AuthURL(ctx context.Context, state string) (string, error) {
	md, err := p.metadata.Get(ctx, p.cfg.IssuerURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(md.AuthEndpoint)
	if err != nil {
		return "", fmt.Errorf("%w: bad authorization_endpoint: %v", ErrProviderProtocol, err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURL)
	q.Set("scope", strings.Join(p.cfg.Scopes, " "))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeCode canjea el authorization code en el token_endpoint.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (string, error) {
	md, err := p.metadata.Get(ctx, p.cfg.IssuerURL)
	if err != nil {
		return "", err
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("redirect_uri", p.cfg.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, md.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderProtocol, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var body struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return "", fmt.Errorf("%w: token http %d: %s %s",
			ErrProviderProtocol, resp.StatusCode, body.Error, body.ErrorDescription)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrProviderProtocol, err)
	}
	if tr.IDToken == "" {
		return "", fmt.Errorf("%w: token response without id_token", ErrProviderProtocol)
	}
	return tr.IDToken, nil
}

// Identity son los claims federados que le importan al provisioning.
// Username y Email se extraen de los claims configurados en Config.
type Identity struct {
	Subject       string
	Username      string
	Email         string
	EmailVerified bool
	Name          string
}

// VerifyIDToken valida firma, iss y aud del id_token y extrae la identidad.
func (p *Provider) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	alg, kid, err := peekHeader(idToken)
	if err != nil {
		return nil, err
	}
	if !p.algAllowed(alg) {
		return nil, fmt.Errorf("%w: id_token alg %q not in allow-list", ErrProviderProtocol, alg)
	}

	key, err := p.keys.Get(ctx, p.cfg.IssuerURL, kid)
	if err != nil {
		return nil, err
	}

	tok, err := jwtv5.Parse(idToken,
		func(t *jwtv5.Token) (any, error) { return key.Key, nil },
		jwtv5.WithValidMethods(p.cfg.AllowedAlgs),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: id_token signature verification failed", ErrProviderProtocol)
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrProviderProtocol)
	}

	iss, _ := claims["iss"].(string)
	if strings.TrimSuffix(iss, "/") != strings.TrimSuffix(p.cfg.IssuerURL, "/") {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrProviderProtocol)
	}
	if !audContains(claims["aud"], p.cfg.ClientID) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrProviderProtocol)
	}

	id := &Identity{
		Subject:       strClaim(claims, "sub"),
		Username:      strClaim(claims, p.cfg.UsernameClaim),
		Email:         strClaim(claims, p.cfg.EmailClaim),
		EmailVerified: boolClaim(claims, "email_verified"),
		Name:          strClaim(claims, "name"),
	}
	if id.Subject == "" {
		return nil, fmt.Errorf("%w: id_token without sub", ErrProviderProtocol)
	}
	return id, nil
}

func (p *Provider) algAllowed(alg string) bool {
	for _, a := range p.cfg.AllowedAlgs {
		if a == alg {
			return true
		}
	}
	return false
}

// peekHeader decodifica solo el header del JWT para leer alg y kid.
func peekHeader(idToken string) (alg, kid string, err error) {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return "", "", fmt.Errorf("%w: malformed id_token", ErrProviderProtocol)
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", "", fmt.Errorf("%w: malformed id_token header", ErrProviderProtocol)
	}
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return "", "", fmt.Errorf("%w: malformed id_token header: %v", ErrProviderProtocol, err)
	}
	return header.Alg, header.Kid, nil
}

func audContains(aud any, clientID string) bool {
	switch a := aud.(type) {
	case string:
		return a == clientID
	case []any:
		for _, v := range a {
			if s, _ := v.(string); s == clientID {
				return true
			}
		}
	}
	return false
}

func strClaim(m jwtv5.MapClaims, k string) string {
	s, _ := m[k].(string)
	return s
}

func boolClaim(m jwtv5.MapClaims, k string) bool {
	b, _ := m[k].(bool)
	return b
}
