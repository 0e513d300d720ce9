package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, "storage:\n  driver: memory\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.App.Env != "dev" || cfg.Server.Addr != ":8080" {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.JWT.Algorithm != "HS256" || cfg.AccessTTL().Hours() != 1 {
		t.Fatalf("jwt defaults: %+v", cfg.JWT)
	}
	if len(cfg.SSO.AllowedAlgs) != 1 || cfg.SSO.AllowedAlgs[0] != "RS256" {
		t.Fatalf("sso alg default: %v", cfg.SSO.AllowedAlgs)
	}
	if cfg.SSO.UsernameClaim != "preferred_username" || cfg.SSO.EmailClaim != "email" {
		t.Fatalf("sso claim defaults: %q / %q", cfg.SSO.UsernameClaim, cfg.SSO.EmailClaim)
	}
}

func TestLoad_SSOClaimOverrides(t *testing.T) {
	p := writeConfig(t, `
storage:
  driver: memory
sso:
  username_claim: upn
  email_claim: mail
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.SSO.UsernameClaim != "upn" || cfg.SSO.EmailClaim != "mail" {
		t.Fatalf("claim overrides lost: %q / %q", cfg.SSO.UsernameClaim, cfg.SSO.EmailClaim)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	p := writeConfig(t, `
app:
  env: dev
server:
  addr: ":9999"
storage:
  driver: memory
`)
	t.Setenv("ADDR", ":7777")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":7777" {
		t.Fatalf("env override lost: %q", cfg.Server.Addr)
	}
}

func TestValidate_PlaceholderSecretInProd(t *testing.T) {
	p := writeConfig(t, `
app:
  env: prod
storage:
  driver: pg
  dsn: postgres://x
jwt:
  secret: change-me-in-production
`)
	_, err := Load(p)
	if err == nil || !strings.Contains(err.Error(), "placeholder") {
		t.Fatalf("err = %v, want placeholder rejection", err)
	}
}

func TestValidate_MissingSecretInProd(t *testing.T) {
	p := writeConfig(t, `
app:
  env: prod
storage:
  driver: pg
  dsn: postgres://x
`)
	if _, err := Load(p); err == nil {
		t.Fatal("prod without jwt.secret must fail")
	}
}

func TestValidate_MemoryDriverBannedInProd(t *testing.T) {
	p := writeConfig(t, `
app:
  env: prod
storage:
  driver: memory
jwt:
  secret: real-secret
`)
	if _, err := Load(p); err == nil {
		t.Fatal("memory driver must be rejected in prod")
	}
}

func TestValidate_SSORequiresAllFields(t *testing.T) {
	p := writeConfig(t, `
storage:
  driver: memory
sso:
  enabled: true
  issuer_url: https://idp.example
  client_id: reg
`)
	if _, err := Load(p); err == nil {
		t.Fatal("incomplete sso config must fail")
	}
}

func TestValidate_UnsupportedJWTAlg(t *testing.T) {
	p := writeConfig(t, `
storage:
  driver: memory
jwt:
  algorithm: RS256
`)
	if _, err := Load(p); err == nil {
		t.Fatal("non-HMAC session algorithm must fail")
	}
}

func TestValidate_PgRequiresDSN(t *testing.T) {
	p := writeConfig(t, `
storage:
  driver: pg
`)
	if _, err := Load(p); err == nil {
		t.Fatal("driver pg without dsn must fail")
	}
}
