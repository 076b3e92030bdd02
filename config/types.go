package config

import "time"

type AppConfig struct {
	DBDriver   string          `yaml:"db_driver" env:"AEGIS_DB_DRIVER" env-default:"sqlite"`
	DBURL      string          `yaml:"db_url" env:"AEGIS_DB_URL" env-default:"data/aegis.db"`
	ListenAddr string          `yaml:"listen_addr" env:"AEGIS_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	SessionTTL time.Duration   `yaml:"session_ttl" env:"AEGIS_SESSION_TTL" env-default:"3h"`
	Pepper     string          `yaml:"pepper" env:"AEGIS_PEPPER"`
	CSRFKey    string          `yaml:"csrf_key" env:"AEGIS_CSRF_KEY"`
	Bootstrap  BootstrapConfig `yaml:"bootstrap"`
	Sweeper    SweeperConfig   `yaml:"sweeper"`
}

type BootstrapConfig struct {
	AdminUsername  string `yaml:"admin_username" env:"AEGIS_ADMIN_USERNAME" env-default:"admin"`
	AdminEmail     string `yaml:"admin_email" env:"AEGIS_ADMIN_EMAIL" env-default:"admin@example.com"`
	AdminPassword  string `yaml:"admin_password" env:"AEGIS_ADMIN_PASSWORD"`
	SeedSampleData bool   `yaml:"seed_sample_data" env:"AEGIS_SEED_SAMPLE_DATA" env-default:"false"`
}

type SweeperConfig struct {
	Enabled  bool   `yaml:"enabled" env:"AEGIS_SWEEPER_ENABLED" env-default:"true"`
	Schedule string `yaml:"schedule" env:"AEGIS_SWEEPER_SCHEDULE" env-default:"@hourly"`
}

const maxUserSessionTTL = 12 * time.Hour

func (c *AppConfig) EffectiveSessionTTL() time.Duration {
	ttl := 3 * time.Hour
	if c != nil && c.SessionTTL > 0 {
		ttl = c.SessionTTL
	}
	if ttl > maxUserSessionTTL {
		return maxUserSessionTTL
	}
	return ttl
}
