package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	DefaultPort   = 5090
	DefaultAPIKey = "secret-key-123"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Transform TransformConfig `mapstructure:"transform"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	BodyLimit    int           `mapstructure:"body_limit" validate:"min=0"`
}

type AuthConfig struct {
	// APIKey is the shared secret expected in X-Api-Key.
	APIKey string `mapstructure:"api_key" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type StoreConfig struct {
	Type        string        `mapstructure:"type" validate:"oneof=file sqlite postgres oracle couchbase mongodb redis memory"`
	Path        string        `mapstructure:"path"` // file and sqlite
	RecentLimit int           `mapstructure:"recent_limit" validate:"min=1"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DB          DBConfig      `mapstructure:"db"`
	Redis       RedisConfig   `mapstructure:"redis"`
}

type DBConfig struct {
	URI      string `mapstructure:"uri"` // mongodb; built from the fields below when empty
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Pool     struct {
		MaxConns int `mapstructure:"max_conns"`
		MinConns int `mapstructure:"min_conns"`
	} `mapstructure:"pool"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// TransformConfig maps an entry source ("secure", "frontend") to a script in ScriptsDir.
type TransformConfig struct {
	ScriptsDir string            `mapstructure:"scripts_dir"`
	Scripts    map[string]string `mapstructure:"scripts"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.body_limit", 1<<20)

	v.SetDefault("auth.api_key", DefaultAPIKey)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("store.type", "file")
	v.SetDefault("store.path", "data/secure_calls_log.json")
	v.SetDefault("store.recent_limit", 20)
	v.SetDefault("store.timeout", 5*time.Second)
	v.SetDefault("store.db.host", "localhost")
	v.SetDefault("store.db.database", "securecall")
	v.SetDefault("store.db.pool.max_conns", 10)
	v.SetDefault("store.db.pool.min_conns", 1)
	v.SetDefault("store.redis.host", "localhost")
	v.SetDefault("store.redis.port", 6379)
	v.SetDefault("store.redis.key", "securecall:log")

	v.SetDefault("transform.scripts_dir", "scripts")
}

// LoadConfig reads configPath when it exists, then applies environment
// overrides. SECRET_API_KEY and PORT are honoured in addition to the
// dotted-key form (e.g. STORE_TYPE).
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("auth.api_key", "SECRET_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("server.port", "PORT"); err != nil {
		return nil, err
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", configPath, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
