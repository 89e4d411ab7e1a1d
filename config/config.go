// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rapidaai/outreach/pkg/connectors"
	"github.com/spf13/viper"
)

// AppConfig is the process-wide configuration, constructed once in main and
// passed by reference everywhere. Per-call metadata values always override
// the defaults carried here.
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogFile  string `mapstructure:"log_file"`

	// Organization identity spoken by the agent.
	OrganizationName  string `mapstructure:"organization_name" validate:"required"`
	OrganizationPhone string `mapstructure:"organization_phone" validate:"required"`

	// Process-wide SIP defaults; job metadata overrides both.
	OutboundSipTrunkId string `mapstructure:"outbound_sip_trunk_id"`
	OutboundCallerId   string `mapstructure:"outbound_caller_id"`

	// LiveKit provider credentials.
	LivekitUrl       string `mapstructure:"livekit_url"`
	LivekitApiKey    string `mapstructure:"livekit_api_key"`
	LivekitApiSecret string `mapstructure:"livekit_api_secret"`

	// Voice pipeline vendor credentials.
	DeepgramApiKey string `mapstructure:"deepgram_api_key"`
	OpenaiApiKey   string `mapstructure:"openai_api_key"`
	CartesiaApiKey string `mapstructure:"cartesia_api_key"`
	VadModelPath   string `mapstructure:"vad_model_path"`

	// Agent runner sizing.
	AgentConcurrency int `mapstructure:"agent_concurrency"`

	PostgresConfig connectors.PostgresConfig `mapstructure:"postgres" validate:"required"`
}

// HasLivekitCredentials reports whether the LiveKit provider is usable.
func (c *AppConfig) HasLivekitCredentials() bool {
	return c.LivekitUrl != "" && c.LivekitApiKey != "" && c.LivekitApiSecret != ""
}

// InitConfig reads configuration from .env / environment variables.
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env variables.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "outreach-call-api")
	v.SetDefault("VERSION", "0.1.0")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8000)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")

	v.SetDefault("ORGANIZATION_NAME", "Clinical Research Associates")
	v.SetDefault("ORGANIZATION_PHONE", "+1234567890")
	v.SetDefault("OUTBOUND_SIP_TRUNK_ID", "")
	v.SetDefault("OUTBOUND_CALLER_ID", "")

	v.SetDefault("LIVEKIT_URL", "")
	v.SetDefault("LIVEKIT_API_KEY", "")
	v.SetDefault("LIVEKIT_API_SECRET", "")

	v.SetDefault("DEEPGRAM_API_KEY", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("CARTESIA_API_KEY", "")
	v.SetDefault("VAD_MODEL_PATH", "models/silero_vad.onnx")

	v.SetDefault("AGENT_CONCURRENCY", 8)

	v.SetDefault("POSTGRES__HOST", "localhost")
	v.SetDefault("POSTGRES__PORT", 5432)
	v.SetDefault("POSTGRES__DB_NAME", "outreach")
	v.SetDefault("POSTGRES__USER", "outreach")
	v.SetDefault("POSTGRES__PASSWORD", "")
	v.SetDefault("POSTGRES__SSL_MODE", "disable")
	v.SetDefault("POSTGRES__MAX_OPEN_CONNECTION", 10)
	v.SetDefault("POSTGRES__MAX_IDLE_CONNECTION", 10)
}

// GetApplicationConfig unmarshals and validates the application config.
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
