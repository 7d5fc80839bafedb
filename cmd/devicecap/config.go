package main

import (
	"time"

	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/ratelimiter"
)

// baseConfig is needed by every command.
type baseConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Name     string `env:"APP_NAME" envDefault:"devicecap"`
	LogLevel string `env:"LOG_LEVEL"` // overrides the environment default level
}

// engineConfig drives the plan change, activation and fleet services.
type engineConfig struct {
	PlansFile             string        `env:"PLANS_FILE"`                                // YAML catalog; the built-in catalog is used when empty.
	Currency              string        `env:"CURRENCY" envDefault:"USD"`                 // Currency of the add-on slot price.
	ExtraDevicePriceCents int64         `env:"EXTRA_DEVICE_PRICE_CENTS" envDefault:"500"` // Monthly price of one add-on device slot.
	FallbackDeviceLimit   int           `env:"FALLBACK_DEVICE_LIMIT" envDefault:"1"`      // Limit for accounts without a subscription.
	TokenSecret           string        `env:"ACTIVATION_TOKEN_SECRET,required,unset"`    // Signs activation codes.
	TokenTTL              time.Duration `env:"ACTIVATION_TOKEN_TTL" envDefault:"720h"`    // Lifetime of issued activation codes.
	SchedulerSpec         string        `env:"SCHEDULER_SPEC" envDefault:"@every 1m"`     // Cron spec of the scheduled change run.
	SchedulerTimeout      time.Duration `env:"SCHEDULER_TIMEOUT" envDefault:"5m"`         // Upper bound of one scheduled run.
	SchedulerBatchSize    int           `env:"SCHEDULER_BATCH_SIZE" envDefault:"100"`     // Due changes handled per run.
	LockTTL               time.Duration `env:"LOCK_TTL" envDefault:"30s"`                 // Expiry of the Redis account lock.

	// Activation attempts per account: ACTIVATION_RATE_CAPACITY, _REFILL_RATE, _REFILL_INTERVAL.
	ActivationRate ratelimiter.Config `envPrefix:"ACTIVATION_RATE_"`
}

func (c engineConfig) extraDevicePrice() plan.Money {
	return plan.Cents(c.ExtraDevicePriceCents, c.Currency)
}

// defaultPlans is the catalog used when PLANS_FILE is not set.
func defaultPlans(currency string) []plan.Plan {
	return []plan.Plan{
		{
			ID: "basic", Name: "Basic", Description: "One connected device.",
			DeviceLimit: 1, Tier: plan.TierUser, Public: true,
			MonthlyPrice: plan.Cents(900, currency), YearlyPrice: plan.Cents(9000, currency),
		},
		{
			ID: "family", Name: "Family", Description: "Up to five connected devices.",
			DeviceLimit: 5, Tier: plan.TierPro, Public: true,
			MonthlyPrice: plan.Cents(2900, currency), YearlyPrice: plan.Cents(29000, currency),
		},
		{
			ID: "business", Name: "Business", Description: "Up to twenty connected devices.",
			DeviceLimit: 20, Tier: plan.TierPro, Public: true,
			MonthlyPrice: plan.Cents(9900, currency), YearlyPrice: plan.Cents(99000, currency),
		},
	}
}
