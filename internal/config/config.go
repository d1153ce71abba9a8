package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Env         string `mapstructure:"GO_ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`
	ClientURL   string `mapstructure:"CLIENT_URL"` // Base for password reset links

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Seed the achievement catalog on first evaluation if it is empty.
	AchievementsAutoSeed bool `mapstructure:"ACHIEVEMENTS_AUTOSEED"`

	// Comma separated; matching accounts are promoted to ADMIN on login.
	AdminEmails string `mapstructure:"ADMIN_EMAILS"`
}

var AppConfig *Config

var defaults = map[string]interface{}{
	"GO_ENV":                "development",
	"LOG_LEVEL":             "info",
	"PORT":                  "3001",
	"DATABASE_URL":          "",
	"JWT_SECRET":            "",
	"FRONTEND_URL":          "http://localhost:5173",
	"CLIENT_URL":            "http://localhost:5173",
	"REDIS_ADDR":            "localhost:6379",
	"REDIS_PASSWORD":        "",
	"ACHIEVEMENTS_AUTOSEED": true,
	"ADMIN_EMAILS":          "",
}

func LoadConfig() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Registering every key lets Unmarshal see values that only exist in the environment.
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdminEmail(email string) bool {
	for _, candidate := range strings.Split(c.AdminEmails, ",") {
		if candidate = strings.TrimSpace(candidate); candidate != "" && strings.EqualFold(candidate, email) {
			return true
		}
	}
	return false
}
