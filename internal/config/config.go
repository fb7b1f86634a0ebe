package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "TRACKER"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultLogLevel        = "info"
	defaultLogEncoding     = "json"
	defaultTokenIssuer     = "https://securetoken.google.com"
	defaultJWKSURL         = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	defaultPresignTTL      = time.Hour
	defaultLogsBucket      = "daily-logs"
	defaultFilesBucket     = "attachments"
	defaultMongoDatabase   = "student_tracker"
	defaultMongoURI        = "mongodb://localhost:27017"
	defaultObjectStoreAddr = "localhost:9000"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	AllowedOrigins []string
	LogLevel       string
	LogEncoding    string

	// Identity verification.
	TokenAudience  string
	JWKSURL        string
	AllowedIssuers []string
	AdminRoles     map[string]string

	// Object store.
	ObjectStoreEndpoint  string
	ObjectStoreAccessKey string
	ObjectStoreSecretKey string
	ObjectStoreRegion    string
	ObjectStoreUseSSL    bool
	LogsBucket           string
	AttachmentsBucket    string
	PresignTTL           time.Duration

	// Structured database (admin reporting).
	MongoURI      string
	MongoDatabase string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{"*"})
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.encoding", defaultLogEncoding)
	configViper.SetDefault("auth.jwks_url", defaultJWKSURL)
	configViper.SetDefault("auth.allowed_issuers", []string{defaultTokenIssuer})
	configViper.SetDefault("store.endpoint", defaultObjectStoreAddr)
	configViper.SetDefault("store.region", "ap-south-1")
	configViper.SetDefault("store.use_ssl", true)
	configViper.SetDefault("store.logs_bucket", defaultLogsBucket)
	configViper.SetDefault("store.attachments_bucket", defaultFilesBucket)
	configViper.SetDefault("store.presign_ttl", defaultPresignTTL)
	configViper.SetDefault("mongo.uri", defaultMongoURI)
	configViper.SetDefault("mongo.database", defaultMongoDatabase)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          configViper.GetString("http.address"),
		AllowedOrigins:       configViper.GetStringSlice("http.allowed_origins"),
		LogLevel:             configViper.GetString("log.level"),
		LogEncoding:          configViper.GetString("log.encoding"),
		TokenAudience:        configViper.GetString("auth.audience"),
		JWKSURL:              configViper.GetString("auth.jwks_url"),
		AllowedIssuers:       configViper.GetStringSlice("auth.allowed_issuers"),
		AdminRoles:           configViper.GetStringMapString("auth.admin_roles"),
		ObjectStoreEndpoint:  configViper.GetString("store.endpoint"),
		ObjectStoreAccessKey: configViper.GetString("store.access_key"),
		ObjectStoreSecretKey: configViper.GetString("store.secret_key"),
		ObjectStoreRegion:    configViper.GetString("store.region"),
		ObjectStoreUseSSL:    configViper.GetBool("store.use_ssl"),
		LogsBucket:           configViper.GetString("store.logs_bucket"),
		AttachmentsBucket:    configViper.GetString("store.attachments_bucket"),
		PresignTTL:           configViper.GetDuration("store.presign_ttl"),
		MongoURI:             configViper.GetString("mongo.uri"),
		MongoDatabase:        configViper.GetString("mongo.database"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.TokenAudience) == "" {
		return fmt.Errorf("auth.audience is required")
	}
	if strings.TrimSpace(c.ObjectStoreAccessKey) == "" {
		return fmt.Errorf("store.access_key is required")
	}
	if strings.TrimSpace(c.ObjectStoreSecretKey) == "" {
		return fmt.Errorf("store.secret_key is required")
	}
	if strings.TrimSpace(c.LogsBucket) == "" {
		return fmt.Errorf("store.logs_bucket is required")
	}
	if strings.TrimSpace(c.AttachmentsBucket) == "" {
		return fmt.Errorf("store.attachments_bucket is required")
	}
	if strings.TrimSpace(c.MongoURI) == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	return nil
}
