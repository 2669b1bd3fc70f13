// Package config loads shellview settings from a YAML file, SHELLVIEW_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stlalpha/shellview/internal/sshclient"
	"github.com/stlalpha/shellview/internal/terminal"
)

// EnvPrefix is prepended to every environment override, e.g.
// SHELLVIEW_SSH_USER.
const EnvPrefix = "SHELLVIEW"

type Config struct {
	SSH      SSHConfig      `mapstructure:"ssh"`
	Terminal TerminalConfig `mapstructure:"terminal"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
}

type SSHConfig struct {
	Host                  string        `mapstructure:"host"`
	Port                  int           `mapstructure:"port"`
	User                  string        `mapstructure:"user"`
	IdentityFile          string        `mapstructure:"identity_file"`
	Password              string        `mapstructure:"password"`
	UseAgent              bool          `mapstructure:"use_agent"`
	KnownHosts            string        `mapstructure:"known_hosts"`
	InsecureIgnoreHostKey bool          `mapstructure:"insecure_ignore_host_key"`
	ConnectTimeout        time.Duration `mapstructure:"connect_timeout"`
	// Keepalive is a cron spec such as "@every 30s", or "off".
	Keepalive string `mapstructure:"keepalive"`
}

type TerminalConfig struct {
	Variant      string        `mapstructure:"variant"`
	Charset      string        `mapstructure:"charset"`
	Palette      string        `mapstructure:"palette"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
	Debug bool   `mapstructure:"debug"`
}

// ServerConfig configures the loopback server started by "shellview serve".
type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	HostKey      string `mapstructure:"host_key"`
	User         string `mapstructure:"user"`
	PasswordHash string `mapstructure:"password_hash"`
	Shell        string `mapstructure:"shell"`
}

var defaults = map[string]any{
	"ssh.host":                     "",
	"ssh.port":                     sshclient.DefaultPort,
	"ssh.user":                     "",
	"ssh.identity_file":            "",
	"ssh.password":                 "",
	"ssh.use_agent":                true,
	"ssh.known_hosts":              "",
	"ssh.insecure_ignore_host_key": false,
	"ssh.connect_timeout":          "10s",
	"ssh.keepalive":                sshclient.DefaultKeepaliveSchedule,
	"terminal.variant":             "linux",
	"terminal.charset":             "utf-8",
	"terminal.palette":             "xterm",
	"terminal.poll_interval":       "1ms",
	"log.file":                     "",
	"log.level":                    "info",
	"log.debug":                    false,
	"server.addr":                  "127.0.0.1:2222",
	"server.host_key":              "",
	"server.user":                  "",
	"server.password_hash":         "",
	"server.shell":                 "",
}

// NewViper returns a viper instance with defaults and environment overrides
// in place. Callers may bind flags on it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// Load reads the config file at path into v. An empty path searches for
// shellview.yaml in the working directory and $HOME/.shellview; finding
// none is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("shellview")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.shellview")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile is Load on a fresh instance.
func LoadFile(path string) (*Config, error) {
	return Load(NewViper(), path)
}

// Validate checks that every enumerated setting names something known.
func (c *Config) Validate() error {
	var errs []error
	if _, err := terminal.ParseVariant(c.Terminal.Variant); err != nil {
		errs = append(errs, err)
	}
	if _, err := terminal.ParseCharset(c.Terminal.Charset); err != nil {
		errs = append(errs, err)
	}
	if _, err := terminal.PaletteByName(c.Terminal.Palette); err != nil {
		errs = append(errs, err)
	}
	if c.SSH.Port < 0 || c.SSH.Port > 65535 {
		errs = append(errs, fmt.Errorf("ssh.port %d out of range", c.SSH.Port))
	}
	if c.Terminal.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("terminal.poll_interval must be positive"))
	}
	if c.SSH.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("ssh.connect_timeout must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParsedVariant returns the parsed terminal variant. Validate must have passed.
func (t TerminalConfig) ParsedVariant() terminal.Variant {
	v, _ := terminal.ParseVariant(t.Variant)
	return v
}

// ParsedCharset returns the parsed charset. Validate must have passed.
func (t TerminalConfig) ParsedCharset() terminal.Charset {
	c, _ := terminal.ParseCharset(t.Charset)
	return c
}

// ParsedPalette returns the named palette. Validate must have passed.
func (t TerminalConfig) ParsedPalette() terminal.Palette {
	p, _ := terminal.PaletteByName(t.Palette)
	return p
}

// Target builds the dial target from the ssh section.
func (s SSHConfig) Target() sshclient.Target {
	return sshclient.Target{
		Host:                  s.Host,
		Port:                  s.Port,
		User:                  s.User,
		Password:              s.Password,
		IdentityFile:          s.IdentityFile,
		UseAgent:              s.UseAgent,
		KnownHostsFile:        s.KnownHosts,
		InsecureIgnoreHostKey: s.InsecureIgnoreHostKey,
		Timeout:               s.ConnectTimeout,
	}
}
