package gerrit

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	. "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type Config struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

func (c *Config) Validate() error {
	return ValidateStruct(c,
		Field(&c.URL, Required, By(validateBaseURL)),
		Field(&c.Password, By(c.validateCredentials)),
		Field(&c.Timeout, Required, Min(time.Second), Max(10*time.Minute)),
	)
}

func (c *Config) validateCredentials(value interface{}) error {
	password, _ := value.(string)
	if password != "" && c.Username == "" {
		return errors.New("http password set without username")
	}
	return nil
}

func validateBaseURL(value interface{}) error {
	raw, _ := value.(string)
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

// StreamConfig configures `gerrit stream-events` over ssh.
type StreamConfig struct {
	Addr           string
	User           string
	KeyFile        string
	KnownHosts     string
	ReconnectDelay time.Duration
}

func (c *StreamConfig) Validate() error {
	return ValidateStruct(c,
		Field(&c.Addr, Required, is.DialString),
		Field(&c.User, Required),
		Field(&c.KeyFile, Required),
		Field(&c.KnownHosts, Required),
		Field(&c.ReconnectDelay, Required, Min(time.Second), Max(time.Hour)),
	)
}
