package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	crdb "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/vango-dev/routekit/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "routekit.toml"

	// EnvPrefix prefixes environment overrides, e.g. ROUTEKIT_SSR_TIMEOUT.
	EnvPrefix = "ROUTEKIT"

	// DefaultPort is the default development server port.
	DefaultPort = 3000

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// FailurePolicyShell serves the empty shell when a render fails.
	FailurePolicyShell = "shell"

	// FailurePolicyError answers 500 when a render fails.
	FailurePolicyError = "error"
)

// Duration is a time.Duration written as a string ("5s") in routekit.toml.
type Duration struct {
	time.Duration
}

// Seconds returns a Duration of n seconds.
func Seconds(n int) Duration {
	return Duration{time.Duration(n) * time.Second}
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config represents the complete routekit.toml configuration.
type Config struct {
	Project ProjectConfig `mapstructure:"project" toml:"project"`
	Routes  RoutesConfig  `mapstructure:"routes" toml:"routes"`
	Build   BuildConfig   `mapstructure:"build" toml:"build"`
	SSR     SSRConfig     `mapstructure:"ssr" toml:"ssr"`
	Cache   CacheConfig   `mapstructure:"cache" toml:"cache"`
	Dev     DevConfig     `mapstructure:"dev" toml:"dev"`
	Log     LogConfig     `mapstructure:"log" toml:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ProjectConfig identifies the project.
type ProjectConfig struct {
	Name string `mapstructure:"name" toml:"name"`

	// Production makes a broken route tree fatal at startup and disables
	// the dev-only endpoints.
	Production bool `mapstructure:"production" toml:"production"`

	// Title and Description fill the page shell's <title> and
	// description meta tag.
	Title       string `mapstructure:"title" toml:"title"`
	Description string `mapstructure:"description" toml:"description"`

	// Stylesheets are linked from every page, in order.
	Stylesheets []string `mapstructure:"stylesheets" toml:"stylesheets"`

	// Noscript is shown to browsers without JavaScript. Empty omits it.
	Noscript string `mapstructure:"noscript" toml:"noscript"`
}

// RoutesConfig controls how the routes directory is read.
type RoutesConfig struct {
	// Dir is the routes directory, relative to the project root.
	Dir string `mapstructure:"dir" toml:"dir" validate:"required"`

	// Extensions lists the module extensions that mark page and layout files.
	Extensions []string `mapstructure:"extensions" toml:"extensions" validate:"required,min=1,dive,startswith=."`

	// APIPrefix is the reserved top-level directory and URL prefix.
	APIPrefix string `mapstructure:"api_prefix" toml:"api_prefix" validate:"required,excludesall=/\\"`

	// HyphenateStatic turns underscores in static segments into hyphens.
	HyphenateStatic bool `mapstructure:"hyphenate_static" toml:"hyphenate_static"`
}

// BuildConfig controls entrypoint generation and bundling.
type BuildConfig struct {
	// Dir receives generated entrypoints and bundles.
	Dir string `mapstructure:"dir" toml:"dir" validate:"required"`

	// Bundler is the bundler command line, split with shell quoting rules.
	Bundler string `mapstructure:"bundler" toml:"bundler" validate:"required"`

	// ImportPrefix is how generated entrypoints reach the routes directory.
	// Empty derives it from Dir and Routes.Dir.
	ImportPrefix string `mapstructure:"import_prefix" toml:"import_prefix"`

	Minify    bool `mapstructure:"minify" toml:"minify"`
	Sourcemap bool `mapstructure:"sourcemap" toml:"sourcemap"`

	// Debug is exposed to bundles as the DEBUG define.
	Debug bool `mapstructure:"debug" toml:"debug"`

	// Env is exposed to bundles as the ENV define.
	Env string `mapstructure:"env" toml:"env"`

	// Inject lists files the bundler injects into every entry.
	Inject []string `mapstructure:"inject" toml:"inject"`

	// Quiet limits bundler output to errors.
	Quiet bool `mapstructure:"quiet" toml:"quiet"`
}

// SSRConfig controls server-side rendering.
type SSRConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled"`

	// Command is the renderer command line; the bundle path is appended.
	Command string `mapstructure:"command" toml:"command" validate:"required_if=Enabled true"`

	// Protocol is "envelope" or "argv".
	Protocol string `mapstructure:"protocol" toml:"protocol" validate:"oneof=envelope argv"`

	// MaxConcurrent bounds concurrent renders. Zero uses the CPU count.
	MaxConcurrent int `mapstructure:"max_concurrent" toml:"max_concurrent" validate:"gte=0"`

	Timeout Duration `mapstructure:"timeout" toml:"timeout" validate:"gt=0"`

	MaxOutputBytes int64 `mapstructure:"max_output_bytes" toml:"max_output_bytes" validate:"gt=0"`

	// AnonymousOnly renders only for anonymous users; everyone else gets
	// the shell and renders on the client.
	AnonymousOnly bool `mapstructure:"anonymous_only" toml:"anonymous_only"`

	// FailurePolicy is "shell" or "error".
	FailurePolicy string `mapstructure:"failure_policy" toml:"failure_policy" validate:"oneof=shell error"`
}

// CacheConfig controls the render cache.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled"`

	TTL Duration `mapstructure:"ttl" toml:"ttl" validate:"gt=0"`

	// FailureTTL applies to failed renders. Negative disables caching them.
	FailureTTL Duration `mapstructure:"failure_ttl" toml:"failure_ttl"`

	MaxEntries int `mapstructure:"max_entries" toml:"max_entries" validate:"gt=0"`
}

// DevConfig contains development server configuration.
type DevConfig struct {
	Host string `mapstructure:"host" toml:"host" validate:"required"`
	Port int    `mapstructure:"port" toml:"port" validate:"gte=1,lte=65535"`

	// Watch lists extra directories to watch besides the routes directory.
	Watch []string `mapstructure:"watch" toml:"watch"`

	// Ignore lists glob patterns for paths that never trigger a rebuild.
	Ignore []string `mapstructure:"ignore" toml:"ignore"`

	Debounce Duration `mapstructure:"debounce" toml:"debounce" validate:"gte=0"`

	// Reload enables the live reload websocket.
	Reload bool `mapstructure:"reload" toml:"reload"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level" toml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json" toml:"json"`
}

// SetDefaults configures default values for every option.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("project.name", "")
	v.SetDefault("project.production", false)
	v.SetDefault("project.title", "")
	v.SetDefault("project.description", "")
	v.SetDefault("project.stylesheets", []string{})
	v.SetDefault("project.noscript", "This site requires JavaScript to be enabled in your browser.")

	v.SetDefault("routes.dir", "routes")
	v.SetDefault("routes.extensions", []string{".tsx", ".jsx", ".ts", ".js"})
	v.SetDefault("routes.api_prefix", "$api")
	v.SetDefault("routes.hyphenate_static", false)

	v.SetDefault("build.dir", "build")
	v.SetDefault("build.bundler", "npx esbuild")
	v.SetDefault("build.import_prefix", "")
	v.SetDefault("build.minify", false)
	v.SetDefault("build.sourcemap", false)
	v.SetDefault("build.debug", false)
	v.SetDefault("build.env", "development")
	v.SetDefault("build.inject", []string{})
	v.SetDefault("build.quiet", true)

	v.SetDefault("ssr.enabled", true)
	v.SetDefault("ssr.command", "node")
	v.SetDefault("ssr.protocol", "envelope")
	v.SetDefault("ssr.max_concurrent", 0)
	v.SetDefault("ssr.timeout", "10s")
	v.SetDefault("ssr.max_output_bytes", 8<<20)
	v.SetDefault("ssr.anonymous_only", false)
	v.SetDefault("ssr.failure_policy", FailurePolicyShell)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.failure_ttl", "5s")
	v.SetDefault("cache.max_entries", 1000)

	v.SetDefault("dev.host", DefaultHost)
	v.SetDefault("dev.port", DefaultPort)
	v.SetDefault("dev.watch", []string{})
	v.SetDefault("dev.ignore", []string{"node_modules", ".git", "*.swp", "*~"})
	v.SetDefault("dev.debounce", "100ms")
	v.SetDefault("dev.reload", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// newViper returns a viper instance carrying defaults and environment
// overrides.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// New creates a Config with default values and environment overrides.
func New() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// Only a malformed environment override can fail here; fall back to
		// the bare defaults.
		cfg, _ = decode(withDefaults())
	}
	return cfg
}

func withDefaults() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

// Load reads routekit.toml from dir. A missing file is not an error: the
// defaults and environment overrides apply.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := decode(newViper())
		if err != nil {
			return nil, err
		}
		abs, _ := filepath.Abs(path)
		cfg.configPath = abs
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E062").
				WithDetail("No " + ConfigFileName + " at " + path)
		}
		return nil, errors.New("E060").Wrap(err)
	}

	settings := map[string]any{}
	if _, err := toml.Decode(string(data), &settings); err != nil {
		e := errors.New("E060").Wrap(err)
		var perr toml.ParseError
		if crdb.As(err, &perr) {
			return nil, e.WithLocation(path, perr.Position.Line, 0)
		}
		return nil, e.WithLocation(path, 0, 0)
	}

	v := newViper()
	if err := v.MergeConfigMap(settings); err != nil {
		return nil, errors.New("E060").Wrap(err).WithLocation(path, 0, 0)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, errors.FromError(err, "E060").WithLocation(path, 0, 0)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.configPath = abs
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode unmarshals the merged settings into a Config.
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, errors.New("E060").Wrap(crdb.Wrap(err, "decode settings"))
	}
	return &cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path as TOML.
func (c *Config) SaveTo(path string) error {
	data, err := c.TOML()
	if err != nil {
		return errors.New("E060").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E060").Wrap(err)
	}
	c.configPath = path
	return nil
}

// TOML encodes the configuration.
func (c *Config) TOML() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(c); err != nil {
		return nil, crdb.Wrap(err, "encode config")
	}
	return buf.Bytes(), nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project root: the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		return field.Interface().(Duration).Duration
	}, Duration{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that the configuration is valid. Every invalid setting
// is listed in the returned error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !crdb.As(err, &verrs) {
		return errors.New("E061").Wrap(err)
	}
	items := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		items = append(items, describe(fe))
	}
	e := errors.New("E061").WithItems(items...)
	if c.configPath != "" {
		e = e.WithLocation(c.configPath, 0, 0)
	}
	return e
}

// describe renders a validation failure as "ssr.timeout: must be > 0".
func describe(fe validator.FieldError) string {
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}

	var rule string
	switch fe.Tag() {
	case "required", "required_if":
		rule = "is required"
	case "oneof":
		rule = "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		rule = "must be > " + fe.Param()
	case "gte":
		rule = "must be >= " + fe.Param()
	case "lte":
		rule = "must be <= " + fe.Param()
	case "min":
		rule = "must have at least " + fe.Param() + " entries"
	case "startswith":
		rule = fmt.Sprintf("must start with %q", fe.Param())
	case "excludesall":
		rule = fmt.Sprintf("must not contain any of %q", fe.Param())
	default:
		rule = "fails " + fe.Tag()
	}
	return fmt.Sprintf("%s: %s (got %v)", key, rule, fe.Value())
}

// DevAddress returns the development server listen address.
func (c *Config) DevAddress() string {
	return net.JoinHostPort(c.Dev.Host, strconv.Itoa(c.Dev.Port))
}

// DevURL returns the development server URL.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// resolve joins p onto the project root unless it is absolute.
func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// RoutesPath returns the absolute path to the routes directory.
func (c *Config) RoutesPath() string {
	return c.resolve(c.Routes.Dir)
}

// BuildPath returns the absolute path to the build directory.
func (c *Config) BuildPath() string {
	return c.resolve(c.Build.Dir)
}

// ServerBundlePath returns where the server bundle is written.
func (c *Config) ServerBundlePath() string {
	return filepath.Join(c.BuildPath(), "server.bundle.js")
}

// ClientBundlePath returns where the client bundle is written.
func (c *Config) ClientBundlePath() string {
	return filepath.Join(c.BuildPath(), "client.bundle.js")
}

// ImportPrefix returns the import prefix generated entrypoints use to reach
// route modules.
func (c *Config) ImportPrefix() string {
	if c.Build.ImportPrefix != "" {
		return c.Build.ImportPrefix
	}
	rel, err := filepath.Rel(c.BuildPath(), c.RoutesPath())
	if err != nil {
		return filepath.ToSlash(c.RoutesPath())
	}
	return filepath.ToSlash(rel)
}

// WatchPaths returns the absolute directories the dev loop watches.
func (c *Config) WatchPaths() []string {
	paths := []string{c.RoutesPath()}
	for _, w := range c.Dev.Watch {
		paths = append(paths, c.resolve(w))
	}
	return paths
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing routekit.toml, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E062").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest project root, or
// the working directory's defaults when there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return Load(wd)
	}
	return Load(root)
}
