package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/Travis-Britz/regdns"
	"github.com/Travis-Britz/regdns/internal/logging"
	env "github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const envPrefix = "REGDNS_"

// rawConfig holds the options as written by the user, before any derived defaults.
// The yaml tag is also the option name; the flag name is the same with dashes.
type rawConfig struct {
	RecordTTL  string        `yaml:"record_ttl" env:"RECORD_TTL"`
	Add        bool          `yaml:"add" env:"ADD"`
	Delete     bool          `yaml:"delete" env:"DELETE"`
	DryRun     bool          `yaml:"dryrun" env:"DRYRUN"`
	Clear      bool          `yaml:"clear" env:"CLEAR"`
	DDNS       bool          `yaml:"ddns" env:"DDNS"`
	NoNS       bool          `yaml:"nons" env:"NONS"`
	Quiet      bool          `yaml:"quiet" env:"QUIET"`
	Verbose    bool          `yaml:"verbose" env:"VERBOSE"`
	Debug      bool          `yaml:"debug" env:"DEBUG"`
	Cache      string        `yaml:"cache" env:"CACHE"`
	GetIP      string        `yaml:"getip" env:"GETIP"`
	LoginID    string        `yaml:"login_id" env:"LOGIN_ID"`
	Secret     string        `yaml:"secret" env:"SECRET"`
	Username   string        `yaml:"username" env:"USERNAME"`
	Password   string        `yaml:"password" env:"PASSWORD"`
	RecordName string        `yaml:"record_name" env:"RECORD_NAME"`
	Type       string        `yaml:"type" env:"TYPE"`
	APIURL     string        `yaml:"api_url" env:"API_URL"`
	APIVersion string        `yaml:"api_version" env:"API_VERSION"`
	Nameserver string        `yaml:"nameserver" env:"NAMESERVER"`
	LogFormat  string        `yaml:"log_format" env:"LOG_FORMAT"`
	Interval   time.Duration `yaml:"interval" env:"INTERVAL"`
}

func defaults() rawConfig {
	var cache string
	if dir, err := os.UserCacheDir(); err == nil {
		cache = filepath.Join(dir, "regdns", "cache.db")
	}
	return rawConfig{
		RecordTTL:  "24h",
		Cache:      cache,
		GetIP:      regdns.DefaultIPService,
		APIVersion: "1",
		LogFormat:  "human",
	}
}

func bindFlags(fs *pflag.FlagSet, c *rawConfig) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVar(&c.RecordTTL, "record-ttl", c.RecordTTL, "TTL of added records: "+strings.Join(ttlNames(), ", "))
	fs.BoolVar(&c.Add, "add", c.Add, "add the record even if one with the same type and name exists")
	fs.BoolVar(&c.Delete, "delete", c.Delete, "delete the first record with the same type and name")
	fs.BoolVar(&c.DryRun, "dryrun", c.DryRun, "show what would change without submitting it")
	fs.BoolVar(&c.Clear, "clear", c.Clear, "discard the cached token and records first")
	fs.BoolVar(&c.DDNS, "ddns", c.DDNS, "dynamic DNS: type A and the public IP as content")
	fs.BoolVar(&c.NoNS, "nons", c.NoNS, "skip TTL discovery on the authoritative nameserver")
	fs.BoolVarP(&c.Quiet, "quiet", "q", c.Quiet, "only print warnings and errors")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "print progress")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "print requests and responses")
	fs.StringVar(&c.Cache, "cache", c.Cache, "cache file")
	fs.StringVar(&c.GetIP, "getip", c.GetIP, "public IP source: URL(s), iface:<name>, or an address")
	fs.StringVar(&c.LoginID, "login-id", c.LoginID, "API client id")
	fs.StringVar(&c.Secret, "secret", c.Secret, "API client secret")
	fs.StringVar(&c.Username, "username", c.Username, "account username")
	fs.StringVar(&c.Password, "password", c.Password, `account password, "-" to prompt`)
	fs.StringVar(&c.RecordName, "record-name", c.RecordName, `record label under DOMAIN, "@" for DOMAIN itself (default "_acme-challenge", "@" with --ddns)`)
	fs.StringVar(&c.Type, "type", c.Type, "record type (default TXT, A with --ddns)")
	fs.StringVar(&c.APIURL, "api-url", c.APIURL, "registrar API base URL")
	fs.StringVar(&c.APIVersion, "api-version", c.APIVersion, "API version sent with DNS requests")
	fs.StringVar(&c.Nameserver, "nameserver", c.Nameserver, "resolver (host:port) for nameserver lookups (default from /etc/resolv.conf)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format (human|text|json)")
	fs.DurationVar(&c.Interval, "interval", c.Interval, "repeat every interval until interrupted (minimum 1m)")
}

func flagName(field reflect.StructField) string {
	return strings.ReplaceAll(field.Tag.Get("yaml"), "_", "-")
}

// overlayFlags copies the flags the user set on the command line from flags into dst.
func overlayFlags(fs *pflag.FlagSet, flags rawConfig, dst *rawConfig) {
	src := reflect.ValueOf(flags)
	out := reflect.ValueOf(dst).Elem()
	for i := 0; i < src.NumField(); i++ {
		if fs.Changed(flagName(src.Type().Field(i))) {
			out.Field(i).Set(src.Field(i))
		}
	}
}

// configPaths lists where a config file is looked for when --config is not given.
func configPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "regdns", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".regdns.yaml"))
	}
	return append(paths, "/etc/regdns/config.yaml")
}

// readConfigFile decodes the YAML file at path over c.
func readConfigFile(path string, c *rawConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return &regdns.ConfigError{Msg: fmt.Sprintf("error parsing config file %s: %s", path, err)}
	}
	return nil
}

// loadConfig layers defaults, the config file, the environment and the flags the user set, in that order.
// An explicit configPath must exist; otherwise the first existing file of configPaths is used.
func loadConfig(fs *pflag.FlagSet, flags rawConfig, configPath string) (rawConfig, string, error) {
	c := defaults()

	if configPath != "" {
		if err := readConfigFile(configPath, &c); err != nil {
			var ce *regdns.ConfigError
			if !errors.As(err, &ce) {
				err = &regdns.ConfigError{Msg: fmt.Sprintf("error reading config file: %s", err)}
			}
			return c, "", err
		}
	} else {
		for _, p := range configPaths() {
			err := readConfigFile(p, &c)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return c, "", err
			}
			configPath = p
			break
		}
	}

	if err := env.ParseWithOptions(&c, env.Options{Prefix: envPrefix}); err != nil {
		return c, configPath, &regdns.ConfigError{Msg: fmt.Sprintf("error reading environment: %s", err)}
	}

	overlayFlags(fs, flags, &c)
	return c, configPath, nil
}

var recordTTLs = map[string]int{
	"24h": 86400,
	"8h":  28800,
	"4h":  14400,
	"2h":  7200,
	"1h":  3600,
	"10m": 600,
	"5m":  300,
}

func ttlNames() []string {
	names := make([]string, 0, len(recordTTLs))
	for k := range recordTTLs {
		names = append(names, k)
	}
	slices.SortFunc(names, func(a, b string) int { return recordTTLs[b] - recordTTLs[a] })
	return names
}

func (c rawConfig) verbosity() logging.Verbosity {
	switch {
	case c.Debug:
		return logging.Debug
	case c.Verbose:
		return logging.Verbose
	case c.Quiet:
		return logging.Quiet
	}
	return logging.Normal
}

// Settings is the validated configuration of one invocation.
type Settings struct {
	Domain      string
	Request     regdns.Request
	Credentials regdns.Credentials
	APIURL      string
	APIVersion  string
	CachePath   string
	GetIP       string
	Nameserver  string
	NoNS        bool
	Interval    time.Duration
}

// derive computes the settings of one invocation from the raw options and the DOMAIN [CONTENT] arguments.
func derive(c rawConfig, args []string) (Settings, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return Settings{}, &regdns.ConfigError{Msg: "DOMAIN is required"}
	}
	if len(args) > 2 {
		return Settings{}, &regdns.ConfigError{Msg: fmt.Sprintf("expected DOMAIN [CONTENT]; got %d arguments", len(args))}
	}
	domain := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(args[0]), "."))
	var content string
	if len(args) == 2 {
		content = args[1]
	}

	ttl, ok := recordTTLs[strings.ToLower(c.RecordTTL)]
	if !ok {
		return Settings{}, &regdns.ConfigError{Msg: fmt.Sprintf("invalid record_ttl %q: must be one of %s", c.RecordTTL, strings.Join(ttlNames(), ", "))}
	}

	typ := strings.ToUpper(c.Type)
	if typ == "" {
		typ = "TXT"
		if c.DDNS {
			typ = "A"
		}
	}

	label := c.RecordName
	if label == "" {
		label = "_acme-challenge"
		if c.DDNS {
			label = "@"
		}
	}
	name := domain + "."
	if label != "@" {
		name = strings.TrimSuffix(label, ".") + "." + name
	}

	if content == "" && !c.DDNS && !c.Delete {
		return Settings{}, &regdns.ConfigError{Msg: "CONTENT is required unless --ddns or --delete is set"}
	}

	var missing []string
	for _, req := range []struct{ name, value string }{
		{"login_id", c.LoginID},
		{"secret", c.Secret},
		{"username", c.Username},
		{"password", c.Password},
		{"api_url", c.APIURL},
	} {
		if req.value == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return Settings{}, &regdns.ConfigError{Msg: "missing required options: " + strings.Join(missing, ", ")}
	}
	if c.Cache == "" {
		return Settings{}, &regdns.ConfigError{Msg: "cache path cannot be empty"}
	}

	return Settings{
		Domain: domain,
		Request: regdns.Request{
			Record: regdns.Record{Type: typ, Name: name, Content: content, TTL: ttl},
			Mode:   regdns.Mode{Delete: c.Delete, ForceAdd: c.Add, DryRun: c.DryRun},
			DDNS:   c.DDNS,
			Clear:  c.Clear,
		},
		Credentials: regdns.Credentials{
			ClientID:     c.LoginID,
			ClientSecret: c.Secret,
			Username:     c.Username,
			Password:     c.Password,
		},
		APIURL:     c.APIURL,
		APIVersion: c.APIVersion,
		CachePath:  c.Cache,
		GetIP:      c.GetIP,
		Nameserver: c.Nameserver,
		NoNS:       c.NoNS,
		Interval:   c.Interval,
	}, nil
}
