package core

import (
	"fmt"
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

type (
	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | inmem
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Enabled  bool
		Address  string
		Password string
		DB       int
	}

	// RateLimitConfig drives the PIN login lockout policy.
	RateLimitConfig struct {
		MaxAttempts    int
		Window         time.Duration
		ResetOnSuccess bool
	}

	EvaluationConfig struct {
		// AllowResubmit lets a participant evaluate a finished assignment again.
		// Off by default, unlike the legacy app which never guarded re-submission;
		// set e.g. PROD_EVALUATION_ALLOWRESUBMIT=true to get the legacy behaviour back.
		AllowResubmit bool
	}

	LogConfig struct {
		Level      string
		Path       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	}

	Config struct {
		Env             string // DEV (local; default), TEST, QA, PROD
		AppName         string
		Build           string
		Debug           bool
		TestMode        bool
		WorkDir         string
		SecretKey       string
		FrontendBaseURL string
		RollbarToken    string
		SendgridApiKey  string

		defaultFromEmail string

		Server     ServerConfig
		Database   DatabaseConfig
		Redis      RedisConfig
		RateLimit  RateLimitConfig
		Evaluation EvaluationConfig
		Log        LogConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Paku")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "t0p-s3cr3t(p4ku)k3y!+change-me-in-prod#9c2e")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Paku <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 8*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "paku")
	v.SetDefault("database.user", "paku")
	v.SetDefault("database.password", "paku")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rateLimit.maxAttempts", 5)
	v.SetDefault("rateLimit.window", 5*time.Minute)
	v.SetDefault("rateLimit.resetOnSuccess", false)

	v.SetDefault("evaluation.allowResubmit", false) // diverges from the legacy app, see EvaluationConfig

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 3)
	v.SetDefault("log.maxAgeDays", 7)
	v.SetDefault("log.compress", false)
}

// NewConfig loads the application config from defaults, `config/.env.<env>` (if any) and the environment.
// Environment variables are prefixed by the current ENV and use `_` as the key separator, e.g. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := workDir()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          wd,
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debugHost"),
			ReadTimeout:        v.GetDuration("server.readTimeout"),
			WriteTimeout:       v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:    v.GetInt("rateLimit.maxAttempts"),
			Window:         v.GetDuration("rateLimit.window"),
			ResetOnSuccess: v.GetBool("rateLimit.resetOnSuccess"),
		},
		Evaluation: EvaluationConfig{
			AllowResubmit: v.GetBool("evaluation.allowResubmit"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Path:       v.GetString("log.path"),
			MaxSizeMB:  v.GetInt("log.maxSizeMB"),
			MaxBackups: v.GetInt("log.maxBackups"),
			MaxAgeDays: v.GetInt("log.maxAgeDays"),
			Compress:   v.GetBool("log.compress"),
		},
	}
}

// NewTestConfig returns a Config suitable for unit tests: no env lookup, in-memory storage.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{
		Env:              "TEST",
		AppName:          v.GetString("appName"),
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		SecretKey:        "secret",
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:               "localhost",
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
		},
		Database:  DatabaseConfig{Engine: "inmem"},
		RateLimit: RateLimitConfig{MaxAttempts: 5, Window: 5 * time.Minute},
		Log:       LogConfig{Level: "error"},
	}
}

// workDir walks up from the current directory until it finds the module root (the dir holding go.mod).
// go test runs from the package dir, so relative asset paths would break otherwise.
func workDir() string {
	if wd := os.Getenv("PAKU_WORKDIR"); wd != "" {
		return wd
	}
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
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s(%s) env=%s db=%s", c.AppName, c.Build, c.Env, c.Database.Engine)
}
