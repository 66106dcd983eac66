package flow

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/shopspring/decimal"
)

// Config is loaded with the FLOW prefix.
type Config struct {
	Strict          bool          `split_words:"true" default:"false"`
	AnnualRate      string        `split_words:"true" default:"6.9"`
	StartTimeout    time.Duration `split_words:"true" default:"5s"`
	SnapshotTimeout time.Duration `split_words:"true" default:"3s"`
	NotifyTimeout   time.Duration `split_words:"true" default:"5s"`
}

func (c *Config) Validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.AnnualRate))
	if err != nil {
		return fmt.Errorf("%w: annual rate %q: %v", contractx.ErrValidation, c.AnnualRate, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("%w: annual rate must not be negative", contractx.ErrValidation)
	}
	return nil
}

// Rate is the configured APR in percent. Invalid values read as zero.
func (c Config) Rate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.AnnualRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}
