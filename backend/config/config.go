package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv     string
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string
	JWTSecret  string
	JWTTTL     time.Duration
	ServerPort string
	LogFormat  string
	Timezone   string

	RedisAddr    string
	RedisChannel string

	StreakExpiryCron  string
	RecentTopicsLimit int
	AdminEmails       []string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "learnhub")
	v.SetDefault("DB_PATH", "learnhub.db")
	v.SetDefault("JWT_SECRET", "secret")
	v.SetDefault("JWT_TTL", 72*time.Hour)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_CHANNEL", "progress")
	v.SetDefault("STREAK_EXPIRY_CRON", "5 0 * * *")
	v.SetDefault("RECENT_TOPICS_LIMIT", 10)
	v.SetDefault("ADMIN_EMAILS", "")
	v.AutomaticEnv()

	cfg := &Config{
		AppEnv:            v.GetString("APP_ENV"),
		DBDriver:          strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:            v.GetString("DB_HOST"),
		DBPort:            v.GetString("DB_PORT"),
		DBUser:            v.GetString("DB_USER"),
		DBPassword:        v.GetString("DB_PASSWORD"),
		DBName:            v.GetString("DB_NAME"),
		DBPath:            v.GetString("DB_PATH"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		JWTTTL:            v.GetDuration("JWT_TTL"),
		ServerPort:        v.GetString("SERVER_PORT"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		Timezone:          v.GetString("TIMEZONE"),
		RedisAddr:         strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisChannel:      v.GetString("REDIS_CHANNEL"),
		StreakExpiryCron:  v.GetString("STREAK_EXPIRY_CRON"),
		RecentTopicsLimit: v.GetInt("RECENT_TOPICS_LIMIT"),
		AdminEmails:       splitList(v.GetString("ADMIN_EMAILS")),
	}
	if cfg.RecentTopicsLimit <= 0 || cfg.RecentTopicsLimit > 10 {
		cfg.RecentTopicsLimit = 10
	}
	return cfg, nil
}

// Location resolves Timezone; unknown names fall back to the process local zone.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("unknown TIMEZONE %q, using local time", c.Timezone)
		return time.Local
	}
	return loc
}

func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
