package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment   DeploymentConfig   `validate:"required"`
	Logging      LoggingConfig      `validate:"required"`
	Postgres     PostgresConfig     `validate:"required"`
	Invoice      InvoiceConfig      `validate:"required"`
	Agreement    AgreementConfig    `validate:"required"`
	Subscription SubscriptionConfig `validate:"required"`
	Scheduler    SchedulerConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// InvoiceConfig configures the hosted-invoice provider integration
type InvoiceConfig struct {
	BaseURL       string
	APIKey        string
	CallbackToken string
	Timeout       time.Duration
}

// AgreementConfig configures the billing-agreement provider integration
type AgreementConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ReturnURL    string
	CancelURL    string
	Timeout      time.Duration
}

type SubscriptionConfig struct {
	TrialDays       int
	DefaultCurrency string
}

// SchedulerConfig holds cron expressions for the time-triggered sweeps
type SchedulerConfig struct {
	TrialEndingSpec      string
	PastDueSpec          string
	EnterpriseEndingSpec string
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tradeinvestcenter")

	v.SetEnvPrefix("TIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeServer))
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("subscription.trialdays", 7)
	v.SetDefault("subscription.defaultcurrency", "IDR")
	v.SetDefault("invoice.timeout", "30s")
	v.SetDefault("agreement.timeout", "30s")
	v.SetDefault("scheduler.trialendingspec", "0 9 * * *")
	v.SetDefault("scheduler.pastduespec", "0 * * * *")
	v.SetDefault("scheduler.enterpriseendingspec", "0 9 * * *")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests. This is useful for running scripts or other non-web
// applications.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Invoice: InvoiceConfig{
			BaseURL: "https://invoice.example.test",
			Timeout: 30 * time.Second,
		},
		Agreement: AgreementConfig{
			BaseURL:   "https://agreement.example.test",
			ReturnURL: "https://app.example.test/billing/return",
			CancelURL: "https://app.example.test/billing/cancel",
			Timeout:   30 * time.Second,
		},
		Subscription: SubscriptionConfig{
			TrialDays:       7,
			DefaultCurrency: "IDR",
		},
	}
}
