package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string         `yaml:"env" env-default:"local"`
	HTTPPort    int            `yaml:"http_port" env-default:"8080"`
	PostgresCfg PostgresConfig `yaml:"postgres"`
	RedisCfg    RedisConfig    `yaml:"redis"`
	NatsCfg     NatsConfig     `yaml:"nats"`
	TradingCfg  TradingConfig  `yaml:"trading"`
}

type PostgresConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ConnString builds the pgx connection string for the configured database.
func (c PostgresConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

type RedisConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"6379"`
	Db       int    `yaml:"db" env-default:"0"`
	Password string `yaml:"password"`
}

type NatsConfig struct {
	URL string `yaml:"url" env-default:"nats://localhost:4222"`
}

type TradingConfig struct {
	// CommissionRate is the fraction of trade volume deducted from seller
	// proceeds at settlement, e.g. "0.015" for 1.5%.
	CommissionRate string `yaml:"commission_rate" env-default:"0.015"`
	DefaultSymbol  string `yaml:"default_symbol" env-default:"BTC-USD"`
	TradeLimit     int    `yaml:"trade_limit" env-default:"50"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config file is empty")
	}

	return MustLoadByPath(path)
}

func MustLoadByPath(path string) *Config {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config file not found " + path)
	}

	var config Config

	if err := cleanenv.ReadConfig(path, &config); err != nil {
		panic("failed to read config " + err.Error())
	}

	return &config
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
