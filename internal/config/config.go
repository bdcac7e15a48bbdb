package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MockAPIKey switches the service to the offline mock model.
const MockAPIKey = "mock_key_for_testing"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Model     ModelConfig     `mapstructure:"model"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Doubao    DoubaoConfig    `mapstructure:"doubao"`
	Qwen      QwenConfig      `mapstructure:"qwen"`
	Agent     AgentConfig     `mapstructure:"agent"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retention RetentionConfig `mapstructure:"retention"`
	Storage   StorageConfig   `mapstructure:"storage"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	// MaxBodyBytes bounds JSON bodies; screenshots arrive base64-encoded.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

type ModelConfig struct {
	// Provider is one of gemini, openai, openai_responses, doubao, qwen, mock.
	Provider string `mapstructure:"provider"`
}

type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type DoubaoConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type QwenConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	TopP         float32       `mapstructure:"top_p"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type AgentConfig struct {
	SystemPrompt       string `mapstructure:"system_prompt"`
	SummaryPrompt      string `mapstructure:"summary_prompt"`
	MaxHistoryMessages int    `mapstructure:"max_history_messages"`
	// StructuredPrompt wraps user messages in the sectioned response template.
	StructuredPrompt bool `mapstructure:"structured_prompt"`
	LogDetail        bool `mapstructure:"log_detail"`
	LogDebug         bool `mapstructure:"log_debug"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type RetentionConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	Schedule string        `mapstructure:"schedule"`
}

type StorageConfig struct {
	// Type is one of memory, disk, sqlite, postgres.
	Type      string `mapstructure:"type"`
	DataDir   string `mapstructure:"data_dir"`
	DSN       string `mapstructure:"dsn"`
	CacheSize int    `mapstructure:"cache_size"`
}

type MCPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ArchiveConfig controls the technician-facing transcript archive routes.
// They are off unless enabled, and always require APIToken.
type ArchiveConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIToken string `mapstructure:"api_token"`
}

var cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.max_body_bytes", 12<<20)

	v.SetDefault("model.provider", "gemini")

	v.SetDefault("gemini.model", "gemini-2.5-pro")
	v.SetDefault("gemini.max_tokens", 4096)
	v.SetDefault("gemini.temperature", 0.4)
	v.SetDefault("gemini.timeout", 2*time.Minute)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 2048)
	v.SetDefault("openai.temperature", 0.4)
	v.SetDefault("openai.timeout", 2*time.Minute)

	v.SetDefault("doubao.model", "doubao-seed-1-6-250615")
	v.SetDefault("doubao.timeout", 2*time.Minute)

	v.SetDefault("qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("qwen.model", "qwen-plus")
	v.SetDefault("qwen.max_tokens", 2048)
	v.SetDefault("qwen.temperature", 0.4)
	v.SetDefault("qwen.top_p", 0.9)
	v.SetDefault("qwen.timeout", 2*time.Minute)

	v.SetDefault("agent.system_prompt", DefaultSystemPrompt)
	v.SetDefault("agent.summary_prompt", DefaultSummaryPrompt)
	v.SetDefault("agent.max_history_messages", 20)
	v.SetDefault("agent.structured_prompt", false)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization"})
	v.SetDefault("cors.max_age", 43200)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("retention.ttl", 7*24*time.Hour)
	v.SetDefault("retention.schedule", "@every 1h")

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.cache_size", 100)

	v.SetDefault("mcp.enabled", false)
	v.SetDefault("mcp.path", "/mcp")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.api_token", "")
}

// Load reads the YAML file at configPath on top of the built-in defaults.
// A missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}

	applyEnvKeys(c)

	cfg = c
	return c, nil
}

// 配置文件优先，如果配置文件中没有设置，则使用各厂商约定的环境变量
func applyEnvKeys(c *Config) {
	geminiKey := os.Getenv("GEMINI_API_KEY")
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = geminiKey
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Doubao.APIKey == "" {
		if apiKey := os.Getenv("DOUBAO_API_KEY"); apiKey != "" {
			c.Doubao.APIKey = apiKey
		}
		if apiKey := os.Getenv("ARK_API_KEY"); apiKey != "" {
			c.Doubao.APIKey = apiKey
		}
	}
	if c.Qwen.APIKey == "" {
		c.Qwen.APIKey = os.Getenv("DASHSCOPE_API_KEY")
	}

	if geminiKey == MockAPIKey || c.Gemini.APIKey == MockAPIKey {
		c.Model.Provider = "mock"
	}
}

func Get() *Config {
	return cfg
}
