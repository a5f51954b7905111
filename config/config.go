package config

import (
	"os"
	"path"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const envPrefix = "RETAILHUB_"

// DBConfig Database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig Web server config
type WebConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Secret    string `yaml:"secret"`
	JwtExpire int    `yaml:"jwt_expire"` // hours
}

// LogConfig Logger config
type LogConfig struct {
	Mode       string `yaml:"mode"` // production | development
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// MailConfig SMTP settings for order notifications
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	SmtpHost string `yaml:"smtp_host"`
	SmtpPort int    `yaml:"smtp_port"`
	SmtpUser string `yaml:"smtp_user"`
	SmtpPwd  string `yaml:"smtp_pwd"`
	From     string `yaml:"from"`
	Workers  int    `yaml:"workers"`
}

type AppConfig struct {
	System   SysConfig  `yaml:"system"`
	Web      WebConfig  `yaml:"web"`
	Database DBConfig   `yaml:"database"`
	Logger   LogConfig  `yaml:"logger"`
	Mail     MailConfig `yaml:"mail"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) initDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o700)
	_ = os.MkdirAll(c.GetDataDir(), 0o700)
}

// DefaultAppConfig returns the built-in configuration used when no file is given
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "RetailHub",
			Location: "Europe/Moscow",
			Workdir:  "/var/retailhub",
			Debug:    true,
		},
		Web: WebConfig{
			Host:      "0.0.0.0",
			Port:      1816,
			Secret:    "9b6de5cc-0731-4bf1-b8f3-7f6a2c1d4e30",
			JwtExpire: 24,
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "retailhub",
			User:     "postgres",
			Passwd:   "myroot",
			MaxConn:  100,
			IdleConn: 10,
			Debug:    false,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
			Filename:   "/var/retailhub/logs/retailhub.log",
		},
		Mail: MailConfig{
			Enabled:  false,
			SmtpHost: "localhost",
			SmtpPort: 25,
			From:     "noreply@retailhub.local",
			Workers:  4,
		},
	}
}

// LoadConfig reads the yaml file (if any) over the defaults and applies environment overrides
func LoadConfig(cfile string) *AppConfig {
	if cfile == "" {
		cfile = "retailhub.yml"
	}
	if !fileExists(cfile) {
		cfile = "/etc/retailhub.yml"
	}
	cfg := DefaultAppConfig()
	if fileExists(cfile) {
		data, err := os.ReadFile(cfile)
		if err != nil {
			panic(err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			panic(err)
		}
	}
	applyEnv(cfg, os.Getenv)
	cfg.initDirs()
	return cfg
}

func applyEnv(cfg *AppConfig, getenv func(string) string) {
	setString := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			*dst = cast.ToInt(v)
		}
	}
	setBool := func(name string, dst *bool) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			*dst = cast.ToBool(v)
		}
	}

	setString("SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setString("SYSTEM_LOCATION", &cfg.System.Location)
	setBool("SYSTEM_DEBUG", &cfg.System.Debug)

	setString("WEB_HOST", &cfg.Web.Host)
	setInt("WEB_PORT", &cfg.Web.Port)
	setString("WEB_SECRET", &cfg.Web.Secret)
	setInt("WEB_JWT_EXPIRE", &cfg.Web.JwtExpire)

	setString("DB_TYPE", &cfg.Database.Type)
	setString("DB_HOST", &cfg.Database.Host)
	setInt("DB_PORT", &cfg.Database.Port)
	setString("DB_NAME", &cfg.Database.Name)
	setString("DB_USER", &cfg.Database.User)
	setString("DB_PWD", &cfg.Database.Passwd)
	setInt("DB_MAX_CONN", &cfg.Database.MaxConn)
	setInt("DB_IDLE_CONN", &cfg.Database.IdleConn)
	setBool("DB_DEBUG", &cfg.Database.Debug)

	setString("LOGGER_MODE", &cfg.Logger.Mode)
	setBool("LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setString("LOGGER_FILENAME", &cfg.Logger.Filename)

	setBool("MAIL_ENABLED", &cfg.Mail.Enabled)
	setString("MAIL_SMTP_HOST", &cfg.Mail.SmtpHost)
	setInt("MAIL_SMTP_PORT", &cfg.Mail.SmtpPort)
	setString("MAIL_SMTP_USER", &cfg.Mail.SmtpUser)
	setString("MAIL_SMTP_PWD", &cfg.Mail.SmtpPwd)
	setString("MAIL_FROM", &cfg.Mail.From)
	setInt("MAIL_WORKERS", &cfg.Mail.Workers)
}

func fileExists(file string) bool {
	info, err := os.Stat(file)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
