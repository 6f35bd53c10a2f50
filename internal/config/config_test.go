package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Port != "8080" {
		t.Errorf("port = %q", cfg.App.Port)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if !cfg.KafkaEnabled() {
		t.Error("kafka must be enabled")
	}
	if cfg.Redis.TTL != 15*time.Minute {
		t.Errorf("ttl = %s", cfg.Redis.TTL)
	}
	rate, err := cfg.CommissionRate()
	if err != nil || rate.String() != "0.2" {
		t.Errorf("rate = %s, %v", rate, err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	dir := t.TempDir()
	body := []byte(`
app:
  port: "9000"
database:
  driver: memory
auth:
  jwt_secret: from-file
commission:
  rate: "0.25"
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != "9000" || cfg.Auth.JWTSecret != "from-file" || cfg.Commission.Rate != "0.25" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "no secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "bad rate", mutate: func(c *Config) { c.Commission.Rate = "abc" }, wantErr: true},
		{name: "rate above one", mutate: func(c *Config) { c.Commission.Rate = "1.5" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.Database.Driver = DriverPostgres
			c.Auth.JWTSecret = "s"
			c.Commission.Rate = "0.20"
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
