package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP // 远端函数服务（cmd/api）
	Admin HTTP // 后台服务（cmd/admin）
}

type Rotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level  string
	JSON   bool
	Rotate Rotate
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

// Operator 后台登录账号；PasswordHash 是 bcrypt 哈希
type Operator struct {
	Email        string
	PasswordHash string `mapstructure:"password_hash"`
	Role         string
}

type Redis struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	SessionTTL int    `mapstructure:"session_ttl_min"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
	SchemaVersion      int `mapstructure:"schema_version"`
}

// Remote 后台优先调用的远端函数（数据主来源）
type Remote struct {
	BaseURL     string `mapstructure:"base_url"`
	TimeoutSec  int    `mapstructure:"timeout_sec"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

type Shipping struct {
	BaseURL            string   `mapstructure:"base_url"`
	ClientID           string   `mapstructure:"client_id"`
	ClientSecret       string   `mapstructure:"client_secret"`
	CallbackPath       string   `mapstructure:"callback_path"`
	DefaultRedirectURI string   `mapstructure:"default_redirect_uri"`
	Scopes             []string `mapstructure:"scopes"`
	State              string   `mapstructure:"state"`
	PlaceholderToken   string   `mapstructure:"placeholder_token"`
	SuccessURL         string   `mapstructure:"success_url"`
	ErrorURL           string   `mapstructure:"error_url"`
	RefreshSchedule    string   `mapstructure:"refresh_schedule"`
	TimeoutSec         int      `mapstructure:"timeout_sec"`
}

type Config struct {
	App      App
	Log      Log
	JWT      JWT
	Operator Operator
	DB       DB     // 远端函数服务的主库
	Local    DB     // 后台本地库
	Redis    Redis  `mapstructure:"redis"`
	Remote   Remote `mapstructure:"remote"`
	Shipping Shipping
}

func (j JWT) TTL() time.Duration { return time.Duration(j.AccessTokenTTLMin) * time.Minute }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pharma-backoffice")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.admin.host", "0.0.0.0")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("app.admin.readtimeoutsec", 5)
	v.SetDefault("app.admin.writetimeoutsec", 10)
	v.SetDefault("app.admin.idletimeoutsec", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.rotate.filename", "logs/app.log")
	v.SetDefault("log.rotate.maxsizemb", 100)
	v.SetDefault("log.rotate.maxbackups", 7)
	v.SetDefault("log.rotate.maxagedays", 30)

	// 空默认值也要登记，APP_ 环境变量才能覆盖
	for _, k := range []string{
		"jwt.secret", "operator.email", "operator.password_hash",
		"db.dsn", "db.username", "db.password", "redis.addr", "redis.password",
		"remote.base_url", "shipping.client_id", "shipping.client_secret",
	} {
		v.SetDefault(k, "")
	}
	v.SetDefault("jwt.issuer", "pharma-backoffice")
	v.SetDefault("jwt.accesstokenttlmin", 120)

	v.SetDefault("operator.role", "admin")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 5)
	v.SetDefault("db.connmaxlifetimemin", 30)

	v.SetDefault("local.driver", "sqlite")
	v.SetDefault("local.dsn", "backoffice.db")
	v.SetDefault("local.loglevel", "warn")
	v.SetDefault("local.schema_version", 1)

	v.SetDefault("redis.session_ttl_min", 120)

	v.SetDefault("remote.timeout_sec", 5)
	v.SetDefault("remote.max_attempts", 1)

	v.SetDefault("shipping.base_url", "https://sandbox.melhorenvio.com.br")
	v.SetDefault("shipping.callback_path", "/shipping/oauth/callback")
	v.SetDefault("shipping.default_redirect_uri", "http://localhost:8081/shipping/oauth/callback")
	v.SetDefault("shipping.scopes", []string{
		"cart-read", "cart-write", "companies-read", "coupons-read",
		"orders-read", "products-read", "shipping-calculate", "shipping-checkout",
		"shipping-generate", "shipping-print", "shipping-tracking", "users-read",
	})
	v.SetDefault("shipping.state", "backoffice")
	v.SetDefault("shipping.placeholder_token", "shipping-token-unavailable")
	v.SetDefault("shipping.success_url", "/admin/settings/shipping")
	v.SetDefault("shipping.error_url", "/admin/settings/shipping/error")
	v.SetDefault("shipping.refresh_schedule", "@every 10m")
	v.SetDefault("shipping.timeout_sec", 15)
}

// Read 读 YAML，APP_ 前缀环境变量覆盖；没显式指定路径时文件缺失不算错
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path == "" {
		path = "./configs/config.local.yaml"
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || os.IsNotExist(err)) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return c
}
