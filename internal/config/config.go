// Package config carga la configuración del registry: YAML + overrides por
// variables de entorno, con defaults sanos y validación dura en prod.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	jwtx "github.com/dropDatabas3/potatoreg/internal/jwt"
)

// insecureSecret es el placeholder de los configs de ejemplo. Arrancar en
// prod con este valor es un error fatal.
const insecureSecret = "change-me-in-production"

type Config struct {
	App struct {
		// dev | staging | prod
		Env  string `yaml:"env"`
		Name string `yaml:"name"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		// pg | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
		// ArtifactsDir es el root de los archivos subidos.
		ArtifactsDir string `yaml:"artifacts_dir"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			DB       int    `yaml:"db"`
			Password string `yaml:"password"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		Secret    string `yaml:"secret"`
		Algorithm string `yaml:"algorithm"` // HS256 | HS384 | HS512
		AccessTTL string `yaml:"access_ttl"`
	} `yaml:"jwt"`

	Auth struct {
		LocalEnabled bool `yaml:"local_enabled"`
	} `yaml:"auth"`

	SSO struct {
		Enabled             bool     `yaml:"enabled"`
		IssuerURL           string   `yaml:"issuer_url"`
		ClientID            string   `yaml:"client_id"`
		ClientSecret        string   `yaml:"client_secret"`
		RedirectURL         string   `yaml:"redirect_url"`
		Scopes              []string `yaml:"scopes"`
		AllowedAlgs         []string `yaml:"allowed_algs"`
		AllowAccountLinking bool     `yaml:"allow_account_linking"`
		// UsernameClaim / EmailClaim: de qué claims del id_token salen el
		// username y el email federados. No todos los IdPs usan los nombres
		// estándar.
		UsernameClaim string `yaml:"username_claim"`
		EmailClaim    string `yaml:"email_claim"`
	} `yaml:"sso"`

	Bootstrap struct {
		AdminUsername string `yaml:"admin_username"`
		AdminPassword string `yaml:"admin_password"`
		AdminEmail    string `yaml:"admin_email"`
	} `yaml:"bootstrap"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "potatoreg"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "pg"
	}
	if c.Storage.ArtifactsDir == "" {
		c.Storage.ArtifactsDir = "./data/artifacts"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "5m"
	}
	if c.JWT.Algorithm == "" {
		c.JWT.Algorithm = "HS256"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "1h"
	}
	if len(c.SSO.Scopes) == 0 {
		c.SSO.Scopes = []string{"openid", "email", "profile"}
	}
	if len(c.SSO.AllowedAlgs) == 0 {
		c.SSO.AllowedAlgs = []string{"RS256"}
	}
	if c.SSO.UsernameClaim == "" {
		c.SSO.UsernameClaim = "preferred_username"
	}
	if c.SSO.EmailClaim == "" {
		c.SSO.EmailClaim = "email"
	}

	c.applyEnvOverrides()

	// validate string durations
	for _, d := range []string{c.JWT.AccessTTL, c.Cache.Memory.DefaultTTL} {
		if _, err := time.ParseDuration(d); err != nil {
			return nil, fmt.Errorf("config: invalid duration %q: %w", d, err)
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("ARTIFACTS_DIR"); ok {
		c.Storage.ArtifactsDir = v
	}
	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Kind = "redis"
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("SSO_CLIENT_SECRET"); ok {
		c.SSO.ClientSecret = v
	}
	if v, ok := getEnvStr("BOOTSTRAP_ADMIN_PASSWORD"); ok {
		c.Bootstrap.AdminPassword = v
	}
}

// IsProd indica si corremos con salvaguardas de producción.
func (c *Config) IsProd() bool {
	return strings.EqualFold(c.App.Env, "prod")
}

// Validate aplica las invariantes de arranque. Un secret ausente o igual al
// placeholder en prod aborta el proceso: nunca se degrada a un default.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		if c.IsProd() {
			return fmt.Errorf("config: jwt.secret is required in prod")
		}
		// dev/test: secret efímero aceptable, lo genera quien arma el Issuer
	}
	if c.JWT.Secret == insecureSecret && c.IsProd() {
		return fmt.Errorf("config: jwt.secret is the sample placeholder; refusing to start in prod")
	}
	if !jwtx.SupportedAlg(c.JWT.Algorithm) {
		return fmt.Errorf("config: unsupported jwt.algorithm %q", c.JWT.Algorithm)
	}

	switch c.Storage.Driver {
	case "pg":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn is required for driver pg")
		}
	case "memory":
		if c.IsProd() {
			return fmt.Errorf("config: storage.driver memory is not allowed in prod")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}

	if c.SSO.Enabled {
		if c.SSO.IssuerURL == "" || c.SSO.ClientID == "" || c.SSO.ClientSecret == "" || c.SSO.RedirectURL == "" {
			return fmt.Errorf("config: sso requires issuer_url, client_id, client_secret and redirect_url")
		}
	}
	return nil
}

// AccessTTL devuelve el TTL del token de sesión ya parseado.
func (c *Config) AccessTTL() time.Duration {
	d, _ := time.ParseDuration(c.JWT.AccessTTL)
	return d
}

// MemoryTTL devuelve el TTL default del cache en memoria.
func (c *Config) MemoryTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.Memory.DefaultTTL)
	return d
}

// ConnMaxLifetime devuelve la vida máxima de conexión pg (0 si no está).
func (c *Config) ConnMaxLifetime() time.Duration {
	if c.Storage.Postgres.ConnMaxLifetime == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime)
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
