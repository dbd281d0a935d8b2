package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageS3       = "s3"
)

type (
	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		SQLitePath    string
	}

	S3Config struct {
		Bucket    string
		Region    string
		Endpoint  string
		Prefix    string
		PathStyle bool
	}

	StorageConfig struct {
		Driver   string
		FileDir  string
		Database DatabaseConfig
		S3       S3Config
	}

	Config struct {
		Env                       string // DEV (local; default), TEST, QA, PROD
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		DefaultFromEmail          mail.Address
		PasswordResetTimeoutDelta time.Duration
		RollbarToken              string
		SendgridApiKey            string
		Server                    ServerConfig
		Storage                   StorageConfig
	}
)

// Address returns the "host:port" of the database server.
func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

// NewConfig reads the configuration of the current environment.
// Environment variables are prefixed with the environment name, e.g. PROD_SECRET_KEY.
func NewConfig() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("app_name", "Hostel")
	v.SetDefault("secret_key", "xk2e-9)zq7w!hc@u1n^s4bmv+o(t0r$d3g8lfy6pa=j5i_")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("default_from_email", "noreply@localhost")
	v.SetDefault("password_reset_timeout_delta", 3*24*time.Hour)
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debug_host", ":4000")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.jwt_expiration_delta", 7*24*time.Hour)
	v.SetDefault("server.jwt_refresh_expiration_delta", 4*time.Hour)

	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.file_dir", "data")
	v.SetDefault("storage.database.engine", "postgres")
	v.SetDefault("storage.database.host", "localhost")
	v.SetDefault("storage.database.port", 5432)
	v.SetDefault("storage.database.name", "hostel")
	v.SetDefault("storage.database.user", "hostel")
	v.SetDefault("storage.database.password", "")
	v.SetDefault("storage.database.admin_user", "")
	v.SetDefault("storage.database.admin_password", "")
	v.SetDefault("storage.database.disable_tls", false)
	v.SetDefault("storage.database.sqlite_path", filepath.Join("data", "hostel.db"))
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.prefix", "hostel/")
	v.SetDefault("storage.s3.path_style", false)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("test_mode", true)
		v.SetDefault("storage.driver", StorageMemory)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(os.Getenv("CONFIG_DIR"), ".env."+strings.ToLower(env))
	if os.Getenv("CONFIG_DIR") == "" {
		dotEnvPath = filepath.Join("config", ".env."+strings.ToLower(env))
	}
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	appName := v.GetString("app_name")
	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("test_mode"),
		AppName:                   appName,
		SecretKey:                 v.GetString("secret_key"),
		FrontendBaseURL:           v.GetString("frontend_base_url"),
		DefaultFromEmail:          mail.Address{Name: appName, Address: v.GetString("default_from_email")},
		PasswordResetTimeoutDelta: v.GetDuration("password_reset_timeout_delta"),
		RollbarToken:              v.GetString("rollbar_token"),
		SendgridApiKey:            v.GetString("sendgrid_api_key"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debug_host"),
			ShutdownTimeout:           v.GetDuration("server.shutdown_timeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwt_expiration_delta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwt_refresh_expiration_delta"),
		},
		Storage: StorageConfig{
			Driver:  v.GetString("storage.driver"),
			FileDir: v.GetString("storage.file_dir"),
			Database: DatabaseConfig{
				Engine:        v.GetString("storage.database.engine"),
				Host:          v.GetString("storage.database.host"),
				Port:          v.GetInt("storage.database.port"),
				Name:          v.GetString("storage.database.name"),
				User:          v.GetString("storage.database.user"),
				Password:      v.GetString("storage.database.password"),
				AdminUser:     v.GetString("storage.database.admin_user"),
				AdminPassword: v.GetString("storage.database.admin_password"),
				DisableTLS:    v.GetBool("storage.database.disable_tls"),
				SQLitePath:    v.GetString("storage.database.sqlite_path"),
			},
			S3: S3Config{
				Bucket:    v.GetString("storage.s3.bucket"),
				Region:    v.GetString("storage.s3.region"),
				Endpoint:  v.GetString("storage.s3.endpoint"),
				Prefix:    v.GetString("storage.s3.prefix"),
				PathStyle: v.GetBool("storage.s3.path_style"),
			},
		},
	}
}

// NewTestConfig returns a configuration suited for tests: in-memory storage, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		AppName:                   "Hostel",
		SecretKey:                 "test-secret-key",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "Hostel", Address: "noreply@localhost"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: ServerConfig{
			Host:                      "localhost",
			Address:                   ":0",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Storage: StorageConfig{Driver: StorageMemory},
	}
}
