package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	DBURL         string `mapstructure:"DB_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	MQTTBroker    string `mapstructure:"MQTT_BROKER"`
	MQTTClientID  string `mapstructure:"MQTT_CLIENT_ID"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	Port          int    `mapstructure:"PORT"`
	MDNSLocalName string `mapstructure:"MDNS_LOCAL_NAME"`
	SimulatorSpec string `mapstructure:"SIMULATOR_SPEC"`
}

// LoadConfig reads configuration from .env or environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional; environment variables still apply without it.
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("MQTT_CLIENT_ID", "homeboard-backend")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PORT", 5069)
	viper.SetDefault("MDNS_LOCAL_NAME", "homeboard.local")
	// second-resolution cron spec: fire when wall-clock seconds == 0
	viper.SetDefault("SIMULATOR_SPEC", "0 * * * * *")

	cfg := &Config{
		DBURL:         viper.GetString("DB_URL"),
		RedisAddr:     viper.GetString("REDIS_ADDR"),
		MQTTBroker:    viper.GetString("MQTT_BROKER"),
		MQTTClientID:  viper.GetString("MQTT_CLIENT_ID"),
		LogLevel:      viper.GetString("LOG_LEVEL"),
		JWTSecret:     viper.GetString("JWT_SECRET"),
		Port:          viper.GetInt("PORT"),
		MDNSLocalName: viper.GetString("MDNS_LOCAL_NAME"),
		SimulatorSpec: viper.GetString("SIMULATOR_SPEC"),
	}
	return cfg, nil
}
