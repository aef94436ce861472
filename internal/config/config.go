// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Voice    VoiceConfig    `mapstructure:"voice"`
	Mail     MailConfig     `mapstructure:"mail"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig 存储 PostgreSQL 数据库的配置。
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey        string              `mapstructure:"api_key"`
	BaseURL       string              `mapstructure:"base_url"`
	Model         string              `mapstructure:"model"`
	SystemPrompt  string              `mapstructure:"system_prompt"`
	HistoryWindow int                 `mapstructure:"history_window"`
	Generation    LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// VoiceConfig 存储语音服务相关的配置。
// APIKey 只在服务端使用，绝不下发到客户端。
type VoiceConfig struct {
	APIKey                string `mapstructure:"api_key"`
	BaseURL               string `mapstructure:"base_url"`
	AgentID               string `mapstructure:"agent_id"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
}

// MailConfig 存储确认邮件发送相关的配置。
type MailConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	From           string `mapstructure:"from"`
	ConfirmBaseURL string `mapstructure:"confirm_base_url"`
}

// Capabilities 汇总启动时一次性解析出的能力开关。
// 各组件只读取这份不可变的值，不再各自重复判断配置是否可用。
type Capabilities struct {
	AIEnabled    bool `json:"ai_enabled"`
	VoiceEnabled bool `json:"voice_enabled"`
	MailEnabled  bool `json:"mail_enabled"`
}

// ResolveCapabilities 根据当前配置计算能力开关。
// 占位符形式的配置值（如 "your-api-key-here"）视为未配置。
func (c Config) ResolveCapabilities() Capabilities {
	return Capabilities{
		AIEnabled:    isConfiguredValue(c.LLM.APIKey),
		VoiceEnabled: isConfiguredValue(c.Voice.AgentID) && strings.HasPrefix(c.Voice.AgentID, "agent_"),
		MailEnabled:  c.Mail.Host != "" && c.Mail.From != "",
	}
}

// isConfiguredValue 判断一个配置值是否为有效的非占位符取值。
func isConfiguredValue(v string) bool {
	if v == "" {
		return false
	}
	if strings.HasPrefix(v, "your-") || strings.HasSuffix(v, "-here") {
		return false
	}
	return v != "placeholder-key"
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-3.5-turbo")
	viper.SetDefault("llm.history_window", 6)
	viper.SetDefault("voice.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("voice.connect_timeout_seconds", 30)
	viper.SetDefault("mail.port", 587)

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
