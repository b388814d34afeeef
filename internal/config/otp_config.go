package config

import "time"

type OTPConfig interface {
	GetCodeLength() int
	GetCodeExpiry() time.Duration
	GetMaxAttempts() int
	GetRequestsPerMinute() int
	GetRequestsPerHour() int
	GetRateLimiterBackend() string
	GetSweepInterval() time.Duration
	GetSweepRetention() time.Duration
}

type OTP struct {
	Length         int           `yaml:"length"`
	Expiry         time.Duration `yaml:"expiry"`
	MaxAttempts    int           `yaml:"max_attempts"`
	PerMinute      int           `yaml:"per_minute"`
	PerHour        int           `yaml:"per_hour"`
	RateLimiter    string        `yaml:"rate_limiter"` // "store" or "redis"
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	SweepRetention time.Duration `yaml:"sweep_retention"`
}

var _ OTPConfig = OTP{}

func defaultOTP() OTP {
	return OTP{
		Length:         6,
		Expiry:         5 * time.Minute,
		MaxAttempts:    3,
		PerMinute:      3,
		PerHour:        10,
		RateLimiter:    "store",
		SweepInterval:  10 * time.Minute,
		SweepRetention: time.Hour,
	}
}

func (o *OTP) applyEnv() {
	o.Length = GetEnvInt("OTP_LENGTH", o.Length)
	o.Expiry = GetEnvDuration("OTP_EXPIRY", o.Expiry)
	o.MaxAttempts = GetEnvInt("OTP_MAX_ATTEMPTS", o.MaxAttempts)
	o.PerMinute = GetEnvInt("OTP_RATE_LIMIT_PER_MINUTE", o.PerMinute)
	o.PerHour = GetEnvInt("OTP_RATE_LIMIT_PER_HOUR", o.PerHour)
	o.RateLimiter = GetEnv("OTP_RATE_LIMITER", o.RateLimiter)
	o.SweepInterval = GetEnvDuration("OTP_SWEEP_INTERVAL", o.SweepInterval)
	o.SweepRetention = GetEnvDuration("OTP_SWEEP_RETENTION", o.SweepRetention)
}

func (o OTP) GetCodeLength() int { return o.Length }
func (o OTP) GetCodeExpiry() time.Duration { return o.Expiry }
func (o OTP) GetMaxAttempts() int { return o.MaxAttempts }
func (o OTP) GetRequestsPerMinute() int { return o.PerMinute }
func (o OTP) GetRequestsPerHour() int { return o.PerHour }
func (o OTP) GetRateLimiterBackend() string { return o.RateLimiter }
func (o OTP) GetSweepInterval() time.Duration { return o.SweepInterval }
func (o OTP) GetSweepRetention() time.Duration { return o.SweepRetention }
