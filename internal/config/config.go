package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string

	Server struct {
		Port int
	}

	Database struct {
		Path string
	}

	Auth struct {
		Token     string // opaque bearer credential for the HTTP API
		JWTSecret string
	}

	Log struct {
		Level string
	}

	SMTP struct {
		Host     string
		Port     int
		User     string
		Password string
		From     string
	}

	Slack struct {
		Token   string
		Channel string
	}

	Report struct {
		OutputDir        string
		MaxRangeDays     int
		APITimeoutSecs   int
		ResponseTruncate int
	}
}

// Load reads config.yaml (if present) with environment overrides. A local
// .env file is folded into the environment first.
func Load() *Config {
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("reportdesk")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("environment", "development")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.path", "data/reportdesk.db")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("smtp.host", "smtp.gmail.com")
	viper.SetDefault("smtp.port", 465)
	viper.SetDefault("report.outputdir", "/tmp")
	viper.SetDefault("report.maxrangedays", 365)
	viper.SetDefault("report.apitimeoutsecs", 60)
	viper.SetDefault("report.responsetruncate", 10000)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.WithError(err).Error("error reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logrus.WithError(err).Error("error unmarshaling config")
	}
	return &cfg
}
