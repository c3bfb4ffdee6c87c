package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	App struct {
		BaseURL   string
		SecretKey string
	}
	Database struct {
		PostgresURL string
		Path        string
	}
	Auth struct {
		SessionTTLMinutes int
		RememberTTLHours  int
		ResetTTLMinutes   int
	}
	Mail struct {
		Host     string
		Port     int
		Username string
		Password string
		Sender   string
	}
	Storage struct {
		BlobToken    string
		BlobEndpoint string
		Bucket       string
		Region       string
		Endpoint     string
	}
	AWS struct {
		Profile string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Externally mandated names that do not follow the section_key pattern.
	_ = v.BindEnv("app.secretkey", "SECRET_KEY")
	_ = v.BindEnv("database.postgresurl", "POSTGRES_URL")
	_ = v.BindEnv("mail.username", "EMAIL_USER")
	_ = v.BindEnv("mail.password", "EMAIL_PASS")
	_ = v.BindEnv("storage.blobtoken", "BLOB_READ_WRITE_TOKEN")

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("app.baseurl", "http://localhost:8080")
	v.SetDefault("app.secretkey", "")
	v.SetDefault("database.postgresurl", "")
	v.SetDefault("database.path", "data/site.db")
	v.SetDefault("auth.sessionttlminutes", 60)
	v.SetDefault("auth.rememberttlhours", 720)
	v.SetDefault("auth.resetttlminutes", 30)
	v.SetDefault("mail.host", "smtp.googlemail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.sender", "noreply@goblog.demo")
	v.SetDefault("storage.blobtoken", "")
	v.SetDefault("storage.blobendpoint", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")

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
