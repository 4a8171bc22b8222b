package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderArk         = "ark"

	SessionModeCookie    = "cookie"
	SessionModeHeader    = "header"
	SessionModeAnonymous = "anonymous"

	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	defaultHuggingFaceBaseURL = "https://router.huggingface.co/v1"
	defaultHuggingFaceModel   = "CohereLabs/c4ai-command-r-plus:cohere"
	defaultOpenAIBaseURL      = "https://api.openai.com/v1"
	defaultOpenAIModel        = "gpt-4o-mini"
)

// Config 聚合整个服务的配置项。
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Server   ServerConfig
	Store    StoreConfig
	Session  SessionConfig
	AI       AIConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	if _, err := c.Server.Addr(); err != nil {
		return err
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case StoreDriverSQLite, StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("invalid DB_DRIVER value: %q", c.Store.Driver)
	}
	if c.Store.Driver != StoreDriverMemory && strings.TrimSpace(c.Store.DSN) == "" {
		return fmt.Errorf("DATABASE_URL is required for driver %s", c.Store.Driver)
	}

	c.Session.Mode = strings.ToLower(strings.TrimSpace(c.Session.Mode))
	switch c.Session.Mode {
	case SessionModeCookie, SessionModeHeader, SessionModeAnonymous:
	default:
		return fmt.Errorf("invalid SESSION_MODE value: %q", c.Session.Mode)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("invalid SESSION_TTL value: %s", c.Session.TTL)
	}

	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	switch c.AI.Provider {
	case ProviderHuggingFace:
		if c.AI.APIKey == "" {
			c.AI.APIKey = c.AI.HFToken
		}
		c.AI.BaseURL = defaultString(c.AI.BaseURL, defaultHuggingFaceBaseURL)
		c.AI.Model = defaultString(c.AI.Model, defaultHuggingFaceModel)
	case ProviderOpenAI:
		c.AI.BaseURL = defaultString(c.AI.BaseURL, defaultOpenAIBaseURL)
		c.AI.Model = defaultString(c.AI.Model, defaultOpenAIModel)
	case ProviderArk:
	default:
		return fmt.Errorf("invalid AI_PROVIDER value: %q", c.AI.Provider)
	}

	return nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port                  string   `env:"PORT" envDefault:"3000"`
	AllowedOrigins        []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3001"`
	MaxConcurrentRequests int      `env:"MAX_CONCURRENT_REQUESTS" envDefault:"0"`
}

// Addr 解析服务器监听地址。
func (c ServerConfig) Addr() (string, error) {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "3000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":3000" 或 "127.0.0.1:3000"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// StoreConfig 描述消息存储配置。
type StoreConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DATABASE_URL" envDefault:"chat.db"`
}

// SessionConfig 描述会话标识配置。
type SessionConfig struct {
	Mode         string        `env:"SESSION_MODE" envDefault:"cookie"`
	Secret       string        `env:"SESSION_SECRET"`
	TTL          time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	CookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"relay_session"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	AnonymousID  string        `env:"SESSION_ANONYMOUS_ID" envDefault:"global"`
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider string        `env:"AI_PROVIDER" envDefault:"huggingface"`
	APIKey   string        `env:"AI_API_KEY"`
	HFToken  string        `env:"HF_TOKEN"`
	BaseURL  string        `env:"AI_BASE_URL"`
	Model    string        `env:"AI_MODEL"`
	Timeout  time.Duration `env:"AI_TIMEOUT" envDefault:"120s"`
	Ark      ArkConfig
}

// Enabled 表示当前 provider 是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	if c.Provider == ProviderArk {
		return c.Ark.Enabled()
	}
	return c.APIKey != "" && c.Model != ""
}

// ArkConfig 描述火山方舟模型配置。负数表示未设置。
type ArkConfig struct {
	APIKey      string  `env:"ARK_API_KEY"`
	AccessKey   string  `env:"ARK_ACCESS_KEY"`
	SecretKey   string  `env:"ARK_SECRET_KEY"`
	Model       string  `env:"ARK_MODEL"`
	BaseURL     string  `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string  `env:"ARK_REGION" envDefault:"cn-beijing"`
	Temperature float64 `env:"ARK_TEMPERATURE" envDefault:"-1"`
	TopP        float64 `env:"ARK_TOP_P" envDefault:"-1"`
	MaxTokens   int     `env:"ARK_MAX_TOKENS" envDefault:"-1"`
}

// Enabled 表示是否提供了必需的密钥。
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c ArkConfig) NewChatModel(ctx context.Context, timeout time.Duration) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature >= 0 {
		val := float32(c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP >= 0 {
		val := float32(c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens > 0 {
		val := c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}
	if timeout > 0 {
		cfg.Timeout = &timeout
	}
	// 网关层不做重试。
	retries := 0
	cfg.RetryTimes = &retries

	return ark.NewChatModel(ctx, cfg)
}

func defaultString(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
