package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultSecret is the out-of-the-box signing secret. Startup warns loudly
// when it is still in use.
const DefaultSecret = "change-this-secret-key-in-production"

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	App struct {
		Name        string
		Version     string
		Environment string
		APIPrefix   string
		LogLevel    string
	}
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	CORS struct {
		Enabled bool
		Origins []string
	}
	Auth struct {
		Secret                string
		Algorithm             string
		AccessTokenTTLMinutes int
		RefreshTokenTTLDays   int
	}
	// RateLimitPerMinute is configuration surface only; enforcement is
	// deliberately not implemented.
	RateLimitPerMinute int
}

// AccessTokenTTL returns the configured access token lifetime.
func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Auth.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (c Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.Auth.RefreshTokenTTLDays) * 24 * time.Hour
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("USERHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.name", "userhub")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "dev")
	v.SetDefault("app.apiprefix", "/api/v1")
	v.SetDefault("app.loglevel", "info")
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/userhub.db")
	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("auth.secret", DefaultSecret)
	v.SetDefault("auth.algorithm", "HS256")
	v.SetDefault("auth.accesstokenttlminutes", 30)
	v.SetDefault("auth.refreshtokenttldays", 7)
	v.SetDefault("ratelimitperminute", 60)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
