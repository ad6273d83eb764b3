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
	Database struct {
		Path string
	}
	Upload struct {
		// Backend selects the blob store: "local" or "s3".
		Backend string
		// Dir is the upload root for the local backend and the key prefix in
		// stored paths; it is also the URL prefix uploaded files are served under.
		Dir string
		// BaseURL is prepended to stored paths when building public URLs.
		BaseURL string
		// AllowedExtensions lists acceptable image extensions, comma separated.
		AllowedExtensions string
		MaxUploadMB       int64
	}
	Storage struct {
		Bucket   string
		Region   string
		Endpoint string
	}
	AWS struct {
		Profile string
	}
	Auth struct {
		JWTSecret      string
		TokenTTLHours  int
		RegisterSecret string
	}
	Admin struct {
		Username string
		Password string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("NEWSDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/newsdesk.db")
	v.SetDefault("upload.backend", "local")
	v.SetDefault("upload.dir", "static/uploads")
	v.SetDefault("upload.baseurl", "http://localhost:8080")
	v.SetDefault("upload.allowedextensions", "png,jpg,jpeg,gif")
	v.SetDefault("upload.maxuploadmb", 16)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlhours", 168)
	v.SetDefault("auth.registersecret", "")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// AllowedExtensionList splits the configured extension allow-set.
func (c Config) AllowedExtensionList() []string {
	parts := strings.Split(c.Upload.AllowedExtensions, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
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
