package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "MPGS"

type Config struct {
	Merchant Merchant `mapstructure:"merchant"`
	Gateway  Gateway  `mapstructure:"gateway"`
	Webhook  Webhook  `mapstructure:"webhook"`
	Checkout Checkout `mapstructure:"checkout"`
	Database Database `mapstructure:"database"`
	Server   Server   `mapstructure:"server"`
	Log      Log      `mapstructure:"log"`
	Telegram Telegram `mapstructure:"telegram"`
}

type Merchant struct {
	ID          string `mapstructure:"id"`
	APIPassword string `mapstructure:"api_password"`
	Name        string `mapstructure:"name"`
	Address     string `mapstructure:"address"`
}

type Gateway struct {
	URL        string        `mapstructure:"url"`
	APIVersion int           `mapstructure:"api_version"`
	Timeout    time.Duration `mapstructure:"timeout"`
	// RateLimit is the number of session creations allowed per second.
	// Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
}

type Webhook struct {
	Secret string `mapstructure:"secret"`
}

type Checkout struct {
	OrderDescription string `mapstructure:"order_description"`
	RedirectURL      string `mapstructure:"redirect_url"`
	// ThankYouURL may contain an {order_id} placeholder.
	ThankYouURL string `mapstructure:"thank_you_url"`
}

type Database struct {
	URL string `mapstructure:"url"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

type Log struct {
	Path string `mapstructure:"path"`
}

type Telegram struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

var defaults = map[string]interface{}{
	"merchant.id":                "",
	"merchant.api_password":      "",
	"merchant.name":              "Online Store",
	"merchant.address":           "",
	"gateway.url":                "https://epayment.areeba.com",
	"gateway.api_version":        100,
	"gateway.timeout":            30 * time.Second,
	"gateway.rate_limit":         0.0,
	"webhook.secret":             "",
	"checkout.order_description": "Order Payment",
	"checkout.redirect_url":      "http://localhost:8080/checkout/redirect",
	"checkout.thank_you_url":     "http://localhost:8080/checkout/order-received/{order_id}",
	"database.url":               "",
	"server.addr":                ":8080",
	"log.path":                   "stderr",
	"telegram.token":             "",
	"telegram.chat_id":           0,
}

// Load reads the optional YAML file at path and overlays MPGS_* environment
// variables on top of it.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("v.ReadInConfig(%s): %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("v.Unmarshal: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings required to create sessions. An empty webhook
// secret is allowed: every notification is then rejected.
func (c *Config) Validate() error {
	var errs []error
	if c.Merchant.ID == "" {
		errs = append(errs, errors.New("merchant.id is required"))
	}
	if c.Merchant.APIPassword == "" {
		errs = append(errs, errors.New("merchant.api_password is required"))
	}
	if c.Gateway.URL == "" {
		errs = append(errs, errors.New("gateway.url is required"))
	}
	if c.Gateway.Timeout <= 0 {
		errs = append(errs, errors.New("gateway.timeout must be positive"))
	}
	if c.Checkout.RedirectURL == "" {
		errs = append(errs, errors.New("checkout.redirect_url is required"))
	}
	return errors.Join(errs...)
}

// SessionURL is the processor endpoint that creates checkout sessions.
func (c *Config) SessionURL() string {
	return fmt.Sprintf(
		"%s/api/rest/version/%d/merchant/%s/session",
		strings.TrimRight(c.Gateway.URL, "/"),
		c.Gateway.APIVersion,
		c.Merchant.ID,
	)
}

// CheckoutScriptURL is the processor-hosted script that renders the payment
// page for a session.
func (c *Config) CheckoutScriptURL() string {
	return strings.TrimRight(c.Gateway.URL, "/") + "/static/checkout/checkout.min.js"
}

func (c *Config) ThankYouURL(orderID int64) string {
	return strings.ReplaceAll(c.Checkout.ThankYouURL, "{order_id}", fmt.Sprint(orderID))
}
