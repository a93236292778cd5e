package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		SecretKey        string
		FrontendBaseURL  string
		WebhookSecret    string
		SendgridApiKey   string
		RollbarToken     string
		defaultFromEmail string

		Server     ServerConfig
		Database   DatabaseConfig
		Scheduling SchedulingConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		DisableReqLogs            bool
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	SchedulingConfig struct {
		Timezone        string
		DefaultTime     string // HH:MM
		DefaultDuration time.Duration
		location        *time.Location
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, d.Port)
}

// Location is the zone in which step dates are computed. Falls back to UTC.
func (s SchedulingConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("app_name", "Onboarding")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secret_key", "7w@n2#q!0s8k&d^x3z9$b5m+c1v-r4t6y_u(e)i*o%p=a")
	conf.SetDefault("frontend_base_url", "http://localhost:3000")
	conf.SetDefault("default_from_email", "HR Team <noreply@localhost>")
	conf.SetDefault("webhook_secret", "")
	conf.SetDefault("sendgrid_api_key", "")
	conf.SetDefault("rollbar_token", "")

	conf.SetDefault("server_host", "")
	conf.SetDefault("server_port", "8000")
	conf.SetDefault("server_debug_host", "localhost:4000")
	conf.SetDefault("server_disable_req_logs", false)
	conf.SetDefault("server_shutdown_timeout", 5*time.Second)
	conf.SetDefault("jwt_expiration_delta", 4*time.Hour)
	conf.SetDefault("jwt_refresh_expiration_delta", 7*24*time.Hour)

	conf.SetDefault("db_engine", "postgres")
	conf.SetDefault("db_host", "localhost")
	conf.SetDefault("db_port", "5432")
	conf.SetDefault("db_name", "onboarding")
	conf.SetDefault("db_user", "onboarding")
	conf.SetDefault("db_password", "onboarding")
	conf.SetDefault("db_admin_user", "postgres")
	conf.SetDefault("db_admin_password", "postgres")
	conf.SetDefault("db_disable_tls", true)

	conf.SetDefault("scheduling_timezone", "UTC")
	conf.SetDefault("scheduling_default_time", "09:00")
	conf.SetDefault("scheduling_default_duration", time.Hour)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("test_mode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	c := &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("test_mode"),
		AppName:          conf.GetString("app_name"),
		Env:              env,
		Build:            conf.GetString("build"),
		SecretKey:        conf.GetString("secret_key"),
		FrontendBaseURL:  conf.GetString("frontend_base_url"),
		WebhookSecret:    conf.GetString("webhook_secret"),
		SendgridApiKey:   conf.GetString("sendgrid_api_key"),
		RollbarToken:     conf.GetString("rollbar_token"),
		defaultFromEmail: conf.GetString("default_from_email"),
		Server: ServerConfig{
			Host:                      conf.GetString("server_host"),
			Port:                      conf.GetString("server_port"),
			DebugHost:                 conf.GetString("server_debug_host"),
			DisableReqLogs:            conf.GetBool("server_disable_req_logs"),
			ShutdownTimeout:           conf.GetDuration("server_shutdown_timeout"),
			JWTExpirationDelta:        conf.GetDuration("jwt_expiration_delta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwt_refresh_expiration_delta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("db_engine"),
			Host:          conf.GetString("db_host"),
			Port:          conf.GetString("db_port"),
			Name:          conf.GetString("db_name"),
			User:          conf.GetString("db_user"),
			Password:      conf.GetString("db_password"),
			AdminUser:     conf.GetString("db_admin_user"),
			AdminPassword: conf.GetString("db_admin_password"),
			DisableTLS:    conf.GetBool("db_disable_tls"),
		},
		Scheduling: SchedulingConfig{
			Timezone:        conf.GetString("scheduling_timezone"),
			DefaultTime:     conf.GetString("scheduling_default_time"),
			DefaultDuration: conf.GetDuration("scheduling_default_duration"),
		},
	}

	loc, err := time.LoadLocation(c.Scheduling.Timezone)
	if err != nil {
		log.Fatalf("config.LoadLocation(%s): %v", c.Scheduling.Timezone, err)
	}
	c.Scheduling.location = loc
	return c
}

// NewTestConfig returns a Config usable in tests without touching the environment.
func NewTestConfig() *Config {
	return &Config{
		Debug:            false,
		TestMode:         true,
		AppName:          "Onboarding",
		Env:              "TEST",
		Build:            "test",
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://localhost:3000",
		WebhookSecret:    "test-webhook-secret",
		defaultFromEmail: "HR Team <noreply@test.local>",
		Server: ServerConfig{
			DisableReqLogs:            true,
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Database: DatabaseConfig{Engine: "memory"},
		Scheduling: SchedulingConfig{
			Timezone:        "UTC",
			DefaultTime:     "09:00",
			DefaultDuration: time.Hour,
			location:        time.UTC,
		},
	}
}

// Getwd walks up from the working directory to the module root (the directory holding go.mod).
// go test runs with the package directory as working directory, so a plain os.Getwd is not enough.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s) build=%s", c.AppName, c.Env, c.Build)
}
