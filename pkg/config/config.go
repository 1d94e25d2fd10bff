package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type SeaTalkConfig struct {
	AppID      string `json:"appId" yaml:"appId" env:"SEATALK_APP_ID"`
	AppSecret  string `json:"appSecret" yaml:"appSecret" env:"SEATALK_APP_SECRET"`
	AuthURL    string `json:"authUrl" yaml:"authUrl" env:"SEATALK_AUTH_URL"`
	APIBaseURL string `json:"apiBaseUrl" yaml:"apiBaseUrl" env:"SEATALK_API_BASE_URL"`
}

type LLMConfig struct {
	APIKey       string `json:"apiKey" yaml:"apiKey" env:"LLM_API_KEY"`
	Model        string `json:"model" yaml:"model" env:"LLM_MODEL"`
	BaseURL      string `json:"baseUrl" yaml:"baseUrl" env:"LLM_BASE_URL"`
	SystemPrompt string `json:"systemPrompt" yaml:"systemPrompt" env:"LLM_SYSTEM_PROMPT"`
}

type BotConfig struct {
	MentionName      string `json:"mentionName" yaml:"mentionName" env:"BOT_MENTION_NAME"`
	GroupWelcomeText string `json:"groupWelcomeText" yaml:"groupWelcomeText" env:"BOT_GROUP_WELCOME_TEXT"`
	UserWelcomeText  string `json:"userWelcomeText" yaml:"userWelcomeText" env:"BOT_USER_WELCOME_TEXT"`
	SendGroupWelcome bool   `json:"sendGroupWelcome" yaml:"sendGroupWelcome" env:"BOT_SEND_GROUP_WELCOME"`
	SendUserWelcome  bool   `json:"sendUserWelcome" yaml:"sendUserWelcome" env:"BOT_SEND_USER_WELCOME"`
	SendTypingStatus bool   `json:"sendTypingStatus" yaml:"sendTypingStatus" env:"BOT_SEND_TYPING_STATUS"`
}

type WebhookConfig struct {
	WorkerCount  int `json:"workerCount" yaml:"workerCount" env:"WEBHOOK_WORKER_COUNT"`
	QueueMaxSize int `json:"queueMaxSize" yaml:"queueMaxSize" env:"WEBHOOK_QUEUE_MAXSIZE"`
}

type GatewayConfig struct {
	Host string `json:"host" yaml:"host" env:"GATEWAY_HOST"`
	Port int    `json:"port" yaml:"port" env:"GATEWAY_PORT"`
}

// Announcement is one scheduled group post.
type Announcement struct {
	Schedule string `json:"schedule" yaml:"schedule"`
	GroupID  string `json:"groupId" yaml:"groupId"`
	Text     string `json:"text" yaml:"text"`
}

type Config struct {
	SeaTalk       SeaTalkConfig  `json:"seatalk" yaml:"seatalk"`
	LLM           LLMConfig      `json:"llm" yaml:"llm"`
	Bot           BotConfig      `json:"bot" yaml:"bot"`
	Webhook       WebhookConfig  `json:"webhook" yaml:"webhook"`
	Gateway       GatewayConfig  `json:"gateway" yaml:"gateway"`
	Announcements []Announcement `json:"announcements,omitempty" yaml:"announcements,omitempty"`
	LogDir        string         `json:"logDir" yaml:"logDir" env:"LOG_DIR"`
}

// DefaultMentionName is the unset sentinel: while the mention name is left at
// this value, mention gating is disabled.
const DefaultMentionName = "@your-bot-name"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SeaTalk: SeaTalkConfig{
			AuthURL:    "https://openapi.seatalk.io/auth/app_access_token",
			APIBaseURL: "https://openapi.seatalk.io",
		},
		LLM: LLMConfig{
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a concise and helpful SeaTalk assistant.",
		},
		Bot: BotConfig{
			MentionName:      DefaultMentionName,
			GroupWelcomeText: "Thanks for adding me. Mention me in this group to chat.",
			UserWelcomeText:  "Hi, I am online. Ask me anything.",
			SendGroupWelcome: true,
			SendUserWelcome:  true,
			SendTypingStatus: true,
		},
		Webhook: WebhookConfig{
			WorkerCount:  2,
			QueueMaxSize: 1000,
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		LogDir: ".seabot/logs",
	}
}

// LoadConfig loads configuration: defaults, then an optional config file
// (JSON, or YAML by extension), then environment overrides. A missing file at
// the default path is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if path == "" {
		path = filepath.Join(".seabot", "config.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) || explicit {
			return nil, err
		}
	} else {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, cfg)
		default:
			err = json.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	return cfg, nil
}

// WriteDefault writes a pretty-printed default config file, for onboarding.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(DefaultConfig())
}
