package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment string         `json:"environment"`
	Database    DatabaseConfig `json:"database"`
	Server      ServerConfig   `json:"server"`
	TBank       TBankConfig    `json:"tbank"`
	SMTP        SMTPConfig     `json:"smtp"`
	Security    SecurityConfig `json:"security"`
}

type DatabaseConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	User         string        `json:"user"`
	Password     string        `json:"password"`
	DBName       string        `json:"dbname"`
	SSLMode      string        `json:"sslmode"`
	MaxOpenConns int           `json:"max_open_conns"`
	MaxIdleConns int           `json:"max_idle_conns"`
	MaxLifetime  time.Duration `json:"max_lifetime"`
}

type ServerConfig struct {
	Port           string        `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	MaxHeaderBytes int           `json:"max_header_bytes"`
}

type TBankConfig struct {
	TerminalKey string        `json:"terminal_key"`
	Password    string        `json:"password"`
	InitURL     string        `json:"init_url"`
	Timeout     time.Duration `json:"timeout"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `json:"rate_limit_rps"`
	RateLimitBurst int     `json:"rate_limit_burst"`
}

func LoadConfig() (*Config, error) {
	config := &Config{}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	config.Environment = env

	configDir, err := filepath.Abs("config")
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, "config.json")

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	config.loadFromEnv()

	config.setDefaults()

	return config, nil
}

func (c *Config) loadFromEnv() {
	if host := os.Getenv("DB_HOST"); host != "" {
		c.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Database.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		c.Database.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		c.Database.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		c.Database.DBName = dbname
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		c.Database.SSLMode = sslmode
	}

	if terminalKey := os.Getenv("TBANK_TERMINAL_KEY"); terminalKey != "" {
		c.TBank.TerminalKey = strings.TrimSpace(terminalKey)
	}
	if password := os.Getenv("TBANK_TERMINAL_PASSWORD"); password != "" {
		// Some deployments quote the value in the unit file; strip one
		// surrounding pair so the signature base stays correct.
		c.TBank.Password = trimQuotes(strings.TrimSpace(password))
	}
	if initURL := os.Getenv("TBANK_INIT_URL"); initURL != "" {
		c.TBank.InitURL = initURL
	}

	if host := os.Getenv("SMTP_HOST"); host != "" {
		c.SMTP.Host = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.SMTP.Port = p
		}
	}
	if user := os.Getenv("SMTP_USER"); user != "" {
		c.SMTP.User = user
	}
	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		c.SMTP.Password = password
	}
	if from := os.Getenv("EMAIL_FROM"); from != "" {
		c.SMTP.From = from
	}
	if fromName := os.Getenv("EMAIL_FROM_NAME"); fromName != "" {
		c.SMTP.FromName = fromName
	}

	if serverPort := os.Getenv("SERVER_PORT"); serverPort != "" {
		c.Server.Port = serverPort
	}
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func (c *Config) setDefaults() {
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 50
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.MaxLifetime == 0 {
		c.Database.MaxLifetime = time.Hour
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.TBank.InitURL == "" {
		c.TBank.InitURL = "https://securepay.tinkoff.ru/v2/Init"
	}
	if c.TBank.Timeout == 0 {
		c.TBank.Timeout = 20 * time.Second
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.FromName == "" {
		c.SMTP.FromName = "SMILESHOP"
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.User
	}
	if c.Security.RateLimitRPS == 0 {
		c.Security.RateLimitRPS = 100.0
	}
	if c.Security.RateLimitBurst == 0 {
		c.Security.RateLimitBurst = 200
	}
}

func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database port is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("database password is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.TBank.TerminalKey == "" {
		return fmt.Errorf("T-Bank terminal key is required")
	}
	if c.TBank.Password == "" {
		return fmt.Errorf("T-Bank terminal password is required")
	}
	if c.SMTP.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.SMTP.User == "" {
		return fmt.Errorf("SMTP user is required")
	}
	if c.SMTP.Password == "" {
		return fmt.Errorf("SMTP password is required")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
