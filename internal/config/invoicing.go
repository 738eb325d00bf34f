package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InvoicingDefaults seeds the built-in invoice template used when no template is stored.
type InvoicingDefaults struct {
	Currency          string  `mapstructure:"currency"`
	CompanyName       string  `mapstructure:"companyName"`
	NumberFormat      string  `mapstructure:"numberFormat"`
	PaymentTerms      string  `mapstructure:"paymentTerms"`
	DescriptionPrefix string  `mapstructure:"descriptionPrefix"`
	FallbackRate      float64 `mapstructure:"fallbackRate"`
	ShowTax           bool    `mapstructure:"showTax"`
	TaxRate           float64 `mapstructure:"taxRate"`
	TaxLabel          string  `mapstructure:"taxLabel"`
	FooterNotes       string  `mapstructure:"footerNotes"`
}

func DefaultInvoicingDefaults() InvoicingDefaults {
	return InvoicingDefaults{
		Currency:          "USD",
		CompanyName:       "FreshWall",
		NumberFormat:      "dateSequential",
		PaymentTerms:      "net30",
		DescriptionPrefix: "Graffiti removal",
		TaxLabel:          "Tax",
	}
}

type InvoicingDefaultsHolder struct {
	current atomic.Value // holds InvoicingDefaults
}

// NewStaticInvoicingDefaults returns a holder that never reloads.
func NewStaticInvoicingDefaults(defaults InvoicingDefaults) *InvoicingDefaultsHolder {
	holder := &InvoicingDefaultsHolder{}
	holder.current.Store(defaults)
	return holder
}

func NewInvoicingDefaultsHolder(cfg Config, log *zap.Logger) (*InvoicingDefaultsHolder, error) {
	v := viper.New()
	log = log.Named("config.invoicing")

	v.SetConfigName("invoicing")
	v.SetConfigType("yml")
	for _, path := range cfg.InvoicingConfigPaths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("FRESHWALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvoicingDefaults()
	v.SetDefault("invoicing.currency", defaults.Currency)
	v.SetDefault("invoicing.companyName", defaults.CompanyName)
	v.SetDefault("invoicing.numberFormat", defaults.NumberFormat)
	v.SetDefault("invoicing.paymentTerms", defaults.PaymentTerms)
	v.SetDefault("invoicing.descriptionPrefix", defaults.DescriptionPrefix)
	v.SetDefault("invoicing.taxLabel", defaults.TaxLabel)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var current InvoicingDefaults
	if err := v.UnmarshalKey("invoicing", &current); err != nil {
		return nil, err
	}
	if err := validateInvoicingDefaults(current); err != nil {
		return nil, err
	}

	holder := &InvoicingDefaultsHolder{}
	holder.current.Store(current)

	if !fileLoaded {
		log.Info("invoicing config file not found, using defaults")
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InvoicingDefaults
		if err := v.UnmarshalKey("invoicing", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateInvoicingDefaults(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *InvoicingDefaultsHolder) Get() InvoicingDefaults {
	return h.current.Load().(InvoicingDefaults)
}

func validateInvoicingDefaults(cfg InvoicingDefaults) error {
	if len(strings.TrimSpace(cfg.Currency)) != 3 {
		return errors.New("invoicing.currency must be a 3-letter code")
	}
	if cfg.FallbackRate < 0 {
		return errors.New("invoicing.fallbackRate cannot be negative")
	}
	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return errors.New("invoicing.taxRate must be a fraction in [0, 1)")
	}
	return nil
}
