package config

import "time"

type SessionConfig interface {
	GetAccessTokenSecret() string
	GetRefreshTokenSecret() string
	GetAccessTokenTTL() string
	GetRefreshTokenTTL() string
	GetSessionLifetime() time.Duration
}

type Session struct {
	AccessSecret  string        `yaml:"access_secret"`
	RefreshSecret string        `yaml:"refresh_secret"`
	AccessTTL     string        `yaml:"access_ttl"`
	RefreshTTL    string        `yaml:"refresh_ttl"`
	Lifetime      time.Duration `yaml:"lifetime"`
}

var _ SessionConfig = Session{}

func defaultSession() Session {
	return Session{
		AccessTTL:  "24h",
		RefreshTTL: "7d",
		Lifetime:   7 * 24 * time.Hour,
	}
}

func (s *Session) applyEnv() {
	s.AccessSecret = GetEnv("JWT_SECRET", s.AccessSecret)
	s.RefreshSecret = GetEnv("JWT_REFRESH_SECRET", s.RefreshSecret)
	s.AccessTTL = GetEnv("JWT_EXPIRATION", s.AccessTTL)
	s.RefreshTTL = GetEnv("JWT_REFRESH_EXPIRATION", s.RefreshTTL)
	s.Lifetime = GetEnvDuration("SESSION_LIFETIME", s.Lifetime)
}

func (s Session) GetAccessTokenSecret() string { return s.AccessSecret }
func (s Session) GetRefreshTokenSecret() string { return s.RefreshSecret }
func (s Session) GetAccessTokenTTL() string { return s.AccessTTL }
func (s Session) GetRefreshTokenTTL() string { return s.RefreshTTL }
func (s Session) GetSessionLifetime() time.Duration { return s.Lifetime }
