package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppConfig holds everything the bridge needs from the environment. The
// realtime credential is passed down explicitly from here — nothing reads
// process-wide state after startup.
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogPath  string `mapstructure:"log_path"`

	// Realtime AI session settings.
	OpenAIAPIKey  string  `mapstructure:"openai_api_key" validate:"required"`
	RealtimeURL   string  `mapstructure:"realtime_url" validate:"required"`
	Voice         string  `mapstructure:"voice" validate:"required"`
	Instructions  string  `mapstructure:"instructions" validate:"required"`
	Temperature   float64 `mapstructure:"temperature"`

	// Call recording settings.
	RecordingEnabled bool   `mapstructure:"recording_enabled"`
	RecordingDir     string `mapstructure:"recording_dir" validate:"required"`
	ConverterEngine  string `mapstructure:"converter_engine" validate:"oneof=ffmpeg native"`
	FFmpegBinary     string `mapstructure:"ffmpeg_binary"`

	// Optional Twilio auth token; when set, status callbacks are verified
	// against the X-Twilio-Signature header.
	TwilioAuthToken string `mapstructure:"twilio_auth_token"`
}

// InitConfig wires up viper to read from a .env file (path overridable via
// ENV_PATH) and the process environment.
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	if path := os.Getenv("ENV_PATH"); path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("no .env file found, reading from env variables")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "vocalbridge")
	v.SetDefault("VERSION", "0.1.0")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 5050)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "")

	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("REALTIME_URL", "wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview-2024-10-01")
	v.SetDefault("VOICE", "alloy")
	v.SetDefault("INSTRUCTIONS",
		"You are a helpful and bubbly AI assistant who loves to chat about anything "+
			"the user is interested about and is prepared to offer them facts. You have "+
			"a penchant for dad jokes, owl jokes, and rickrolling - subtly. Always stay "+
			"positive, but work in a joke when appropriate.")
	v.SetDefault("TEMPERATURE", 0.8)

	v.SetDefault("RECORDING_ENABLED", true)
	v.SetDefault("RECORDING_DIR", "recordings")
	v.SetDefault("CONVERTER_ENGINE", "ffmpeg")
	v.SetDefault("FFMPEG_BINARY", "ffmpeg")

	v.SetDefault("TWILIO_AUTH_TOKEN", "")
}

// GetApplicationConfig unmarshals and validates the application config.
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(&config); err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
