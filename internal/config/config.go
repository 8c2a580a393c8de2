// Package config loads process configuration from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/protocol"
	"github.com/rudransh-shrivastava/peer-assist/internal/session"
	"github.com/rudransh-shrivastava/peer-assist/internal/transport"
	"github.com/rudransh-shrivastava/peer-assist/internal/transport/webrtc"
	"github.com/spf13/viper"
)

const (
	KeySignalURL         = "signal_url"
	KeyClientID          = "client_id"
	KeyICEServers        = "ice_servers"
	KeyReconnectInterval = "reconnect_interval"
	KeyPollInterval      = "poll_interval"
	KeyPulseInterval     = "pulse_interval"
	KeyReplyTimeout      = "reply_timeout"
	KeyWireFormat        = "wire_format"
	KeyDBPath            = "db_path"
	KeyAnthropicAPIKey   = "anthropic_api_key"
	KeyAnthropicBaseURL  = "anthropic_base_url"
	KeyModel             = "model"
	KeySaveDir           = "save_dir"
	KeyRelayAddr         = "relay_addr"
	KeyLogLevel          = "log_level"

	configName = "peer-assist"
)

var (
	ErrMissingSignalURL = errors.New("signaling server url is required (set SIGNAL_SERVER_URL or --signal-url)")
	ErrMissingClientID  = errors.New("client id is required (set CLIENT_ID or --client-id)")
)

// envBindings are the variables the two peers have always been configured with.
var envBindings = map[string]string{
	KeySignalURL:       "SIGNAL_SERVER_URL",
	KeyClientID:        "CLIENT_ID",
	KeyAnthropicAPIKey: "ANTHROPIC_API_KEY",
}

type Config struct {
	SignalURL         string                `mapstructure:"signal_url"`
	ClientID          string                `mapstructure:"client_id"`
	ICEServers        []transport.ICEServer `mapstructure:"ice_servers"`
	ReconnectInterval time.Duration         `mapstructure:"reconnect_interval"`
	PollInterval      time.Duration         `mapstructure:"poll_interval"`
	PulseInterval     time.Duration         `mapstructure:"pulse_interval"`
	ReplyTimeout      time.Duration         `mapstructure:"reply_timeout"`
	WireFormat        string                `mapstructure:"wire_format"`
	DBPath            string                `mapstructure:"db_path"`
	AnthropicAPIKey   string                `mapstructure:"anthropic_api_key"`
	AnthropicBaseURL  string                `mapstructure:"anthropic_base_url"`
	Model             string                `mapstructure:"model"`
	SaveDir           string                `mapstructure:"save_dir"`
	RelayAddr         string                `mapstructure:"relay_addr"`
	LogLevel          string                `mapstructure:"log_level"`
}

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyReconnectInterval, session.DefaultReconnectInterval)
	v.SetDefault(KeyPollInterval, session.DefaultPollInterval)
	v.SetDefault(KeyPulseInterval, session.DefaultPulseInterval)
	v.SetDefault(KeyReplyTimeout, session.DefaultReplyTimeout)
	v.SetDefault(KeyWireFormat, string(protocol.FormatJSON))
	v.SetDefault(KeyDBPath, "peer-assist.db")
	v.SetDefault(KeySaveDir, "received")
	v.SetDefault(KeyRelayAddr, ":8000")
	v.SetDefault(KeyLogLevel, "debug")

	v.SetEnvPrefix("PEER_ASSIST")
	v.AutomaticEnv()
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
}

// Load reads configFile, or peer-assist.* from the working directory when
// configFile is empty, and decodes the merged settings.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.ICEServers) == 0 {
		cfg.ICEServers = webrtc.DefaultICEServers()
	}
	if _, err := protocol.ParseFormat(cfg.WireFormat); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidatePeer checks the settings both peer roles need before starting.
func (c Config) ValidatePeer() error {
	if c.SignalURL == "" {
		return ErrMissingSignalURL
	}
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	return nil
}

func (c Config) Format() protocol.Format {
	f, err := protocol.ParseFormat(c.WireFormat)
	if err != nil {
		return protocol.FormatJSON
	}
	return f
}
