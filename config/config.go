package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	JwtSecret string `yaml:"jwt_secret" json:"jwt_secret"`
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// PeerConfig configures the outbound automation peer used for messaging
// channel operations. Timeout and ReconcileInterval are deliberately
// configuration values rather than constants.
type PeerConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	ApiKey            string        `yaml:"api_key" json:"api_key"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval" json:"reconcile_interval"`
}

// UnmarshalYAML accepts duration strings ("15s", "2s") for the timeout
// fields, which plain yaml decoding into time.Duration does not.
func (p *PeerConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		BaseURL           string `yaml:"base_url"`
		ApiKey            string `yaml:"api_key"`
		Timeout           string `yaml:"timeout"`
		ReconcileInterval string `yaml:"reconcile_interval"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	p.BaseURL = raw.BaseURL
	p.ApiKey = raw.ApiKey
	if raw.Timeout != "" {
		if d, err := time.ParseDuration(raw.Timeout); err == nil {
			p.Timeout = d
		}
	}
	if raw.ReconcileInterval != "" {
		if d, err := time.ParseDuration(raw.ReconcileInterval); err == nil {
			p.ReconcileInterval = d
		}
	}
	return nil
}

type SmtpConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	From     string `yaml:"from" json:"from"`
}

type AppConfig struct {
	System   SysConfig  `yaml:"system" json:"system"`
	Web      WebConfig  `yaml:"web" json:"web"`
	Database DBConfig   `yaml:"database" json:"database"`
	Logger   LogConfig  `yaml:"logger" json:"logger"`
	Peer     PeerConfig `yaml:"peer" json:"peer"`
	Smtp     SmtpConfig `yaml:"smtp" json:"smtp"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "Clinicore",
		Location: "America/Sao_Paulo",
		Workdir:  "/var/clinicore",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1898,
		JwtSecret: "9b6de5cc-0731-1203-xxtt-0f568ac9da37",
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "clinicore",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/clinicore/clinicore.log",
	},
	Peer: PeerConfig{
		BaseURL:           "http://127.0.0.1:8085",
		Timeout:           15 * time.Second,
		ReconcileInterval: 2 * time.Second,
	},
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue == "true" || evalue == "1" || evalue == "on"
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	p, err := strconv.ParseInt(evalue, 10, 64)
	if err == nil {
		*val = int(p)
	}
}

func setEnvDurationValue(name string, val *time.Duration) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	d, err := time.ParseDuration(evalue)
	if err == nil {
		*val = d
	}
}

// LoadConfig reads the YAML configuration file and applies CLINICORE_*
// environment overrides on top. A missing file yields the defaults.
func LoadConfig(cfile string) *AppConfig {
	cfg := new(AppConfig)
	if data, err := os.ReadFile(cfile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			defaults := *DefaultAppConfig
			cfg = &defaults
		}
	} else {
		defaults := *DefaultAppConfig
		cfg = &defaults
	}

	setEnvValue("CLINICORE_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvBoolValue("CLINICORE_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("CLINICORE_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("CLINICORE_WEB_PORT", &cfg.Web.Port)
	setEnvValue("CLINICORE_WEB_SECRET", &cfg.Web.JwtSecret)

	setEnvValue("CLINICORE_DB_TYPE", &cfg.Database.Type)
	setEnvValue("CLINICORE_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("CLINICORE_DB_PORT", &cfg.Database.Port)
	setEnvValue("CLINICORE_DB_NAME", &cfg.Database.Name)
	setEnvValue("CLINICORE_DB_USER", &cfg.Database.User)
	setEnvValue("CLINICORE_DB_PWD", &cfg.Database.Passwd)

	setEnvValue("CLINICORE_PEER_BASEURL", &cfg.Peer.BaseURL)
	setEnvValue("CLINICORE_PEER_APIKEY", &cfg.Peer.ApiKey)
	setEnvDurationValue("CLINICORE_PEER_TIMEOUT", &cfg.Peer.Timeout)
	setEnvDurationValue("CLINICORE_PEER_RECONCILE_INTERVAL", &cfg.Peer.ReconcileInterval)

	setEnvValue("CLINICORE_SMTP_HOST", &cfg.Smtp.Host)
	setEnvIntValue("CLINICORE_SMTP_PORT", &cfg.Smtp.Port)
	setEnvValue("CLINICORE_SMTP_USERNAME", &cfg.Smtp.Username)
	setEnvValue("CLINICORE_SMTP_PASSWORD", &cfg.Smtp.Password)
	setEnvValue("CLINICORE_SMTP_FROM", &cfg.Smtp.From)

	if cfg.Peer.Timeout <= 0 {
		cfg.Peer.Timeout = DefaultAppConfig.Peer.Timeout
	}
	if cfg.Peer.ReconcileInterval <= 0 {
		cfg.Peer.ReconcileInterval = DefaultAppConfig.Peer.ReconcileInterval
	}
	return cfg
}

// MergeMap overlays a loosely-typed settings map onto the config. Keys match
// field names case-insensitively and scalar values are coerced.
func (c *AppConfig) MergeMap(vals map[string]interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		Metadata:         nil,
		Result:           c,
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return strings.EqualFold(mapKey, fieldName)
		},
	})
	if err != nil {
		return err
	}
	return decoder.Decode(vals)
}
