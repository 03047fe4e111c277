package relayer

import (
	"crypto/ed25519"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/utils"
)

// EnvPrefix is the prefix of the environment variables of the relayer.
const EnvPrefix = "relayer"

// Config is the environment supplied configuration of the relayer binary.
type Config struct {
	NodeURL            string        `envconfig:"NODE_URL" required:"true"`
	PrivateKey         string        `envconfig:"PRIVATE_KEY" required:"true"`
	ContestAddress     string        `envconfig:"CONTEST_ADDRESS" required:"true"`
	AuctionAddress     string        `envconfig:"AUCTION_ADDRESS" required:"true"`
	ContentGatewayURL  string        `envconfig:"CONTENT_GATEWAY_URL" required:"true"`
	PollInterval       time.Duration `envconfig:"POLL_INTERVAL" default:"10s"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	BackoffMaxElapsed  time.Duration `envconfig:"BACKOFF_MAX_ELAPSED" default:"1m"`
	MetricsBindAddress string        `envconfig:"METRICS_BIND_ADDRESS" default:""`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(err, "processing environment failed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value that can be checked without contacting the node.
func (cfg *Config) Validate() error {
	for name, value := range map[string]string{"node URL": cfg.NodeURL, "content gateway URL": cfg.ContentGatewayURL} {
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Errorf("invalid %s: %q", name, value)
		}
	}
	if _, err := cfg.SigningKey(); err != nil {
		return err
	}
	if _, err := ledger.AddressFromHex(cfg.ContestAddress); err != nil {
		return errors.Wrap(err, "invalid contest address")
	}
	if _, err := ledger.AddressFromHex(cfg.AuctionAddress); err != nil {
		return errors.Wrap(err, "invalid auction address")
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	if cfg.PollInterval <= 0 {
		return errors.Errorf("invalid poll interval: %s", cfg.PollInterval)
	}
	return nil
}

// SigningKey parses the hex encoded ed25519 private key.
func (cfg *Config) SigningKey() (ed25519.PrivateKey, error) {
	key, err := utils.ParseEd25519PrivateKeyFromString(cfg.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	return key, nil
}

// Client creates the HTTP client of the configured node.
func (cfg *Config) Client() (*HTTPClient, error) {
	key, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	contestAddress, err := ledger.AddressFromHex(cfg.ContestAddress)
	if err != nil {
		return nil, err
	}
	auctionAddress, err := ledger.AddressFromHex(cfg.AuctionAddress)
	if err != nil {
		return nil, err
	}
	return NewHTTPClient(cfg.NodeURL, key, contestAddress, auctionAddress, cfg.RequestTimeout), nil
}
