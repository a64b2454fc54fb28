// internal/config/model.go
//
// Typed configuration model for the network manager.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                        – dotenv values,
//   • `conf/global.yaml`                     – primary static file,
//   • `WPMN_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *after* unmarshalling (see `secrets.go`), so
// the rest of the code never sees Vault URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr  string   `koanf:"listen_addr"  validate:"required,hostname_port"`
	ForceHTTPS  bool     `koanf:"force_https"`
	CORSOrigins []string `koanf:"cors_origins"`
}

//
// Database section
//

// Database describes the store holding the network and site tables.
//
// `DSN` is kept in YAML so operators can tweak host, port, or flags.  The
// optional `Password` is spliced into a MySQL DSN at runtime and is
// normally a `vault:` reference.
type Database struct {
	Driver      string `koanf:"driver"       validate:"required,oneof=mysql sqlite"`
	DSN         string `koanf:"dsn"          validate:"required"`
	Password    string `koanf:"password"`
	TablePrefix string `koanf:"table_prefix" validate:"required,sqlident,max=20"`
	MaxOpen     int    `koanf:"max_open"     validate:"gte=0"`
	MaxIdle     int    `koanf:"max_idle"     validate:"gte=0"`
}

//
// Multisite section
//

// Multisite holds the deployment policy of the CRUD core.
type Multisite struct {
	MainNetworkID       int64    `koanf:"main_network_id"       validate:"gte=0"`
	Scheme              string   `koanf:"scheme"                validate:"required,oneof=http https"`
	RescueOrphanedSites bool     `koanf:"rescue_orphaned_sites"`
	OptionsToClone      []string `koanf:"options_to_clone"`
}

//
// Cache section
//

// Cache tunes the in-process directory cache and the optional Redis tier.
type Cache struct {
	IdleTTL    time.Duration `koanf:"idle_ttl"`
	MaxEntries int           `koanf:"max_entries" validate:"gte=0"`
	SiteLRU    int           `koanf:"site_lru"    validate:"gte=0"`
	RedisAddr  string        `koanf:"redis_addr"  validate:"omitempty,hostname_port"`
	RedisDB    int           `koanf:"redis_db"`
	RedisTTL   time.Duration `koanf:"redis_ttl"`
}

//
// Auth section
//

// Auth configures bearer-token verification for the REST surface.
type Auth struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

//
// Hooks section
//

// Hooks lists outbound webhook endpoints for lifecycle events.
type Hooks struct {
	Webhooks []string `koanf:"webhooks" validate:"dive,url"`
}

//
// GeoIP section
//

// GeoIP points at an optional GeoLite2-City database.
type GeoIP struct {
	CityDB string `koanf:"city_db"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // WPMN_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Multisite Multisite `koanf:"multisite"`
	Cache     Cache     `koanf:"cache"`
	Auth      Auth      `koanf:"auth"`
	Hooks     Hooks     `koanf:"hooks"`
	GeoIP     GeoIP     `koanf:"geoip"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}
