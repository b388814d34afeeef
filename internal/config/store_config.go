package config

type StoreConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetEventChannelPrefix() string
	GetUserServiceURL() string
	GetInternalAPIKey() string
}

// Store holds connection settings for the backing store and collaborators.
// An empty DatabaseURL selects the in-memory repositories; an empty RedisAddr
// disables the redis rate limiter and event bus.
type Store struct {
	DatabaseURL        string `yaml:"database_url"`
	DatabaseMaxConns   int    `yaml:"database_max_conns"`
	RedisAddr          string `yaml:"redis_addr"`
	RedisPassword      string `yaml:"redis_password"`
	RedisDB            int    `yaml:"redis_db"`
	EventChannelPrefix string `yaml:"event_channel_prefix"`
	UserServiceURL     string `yaml:"user_service_url"`
	InternalAPIKey     string `yaml:"internal_api_key"`
}

var _ StoreConfig = Store{}

func defaultStore() Store {
	return Store{
		DatabaseMaxConns:   10,
		EventChannelPrefix: "events:",
	}
}

func (s *Store) applyEnv() {
	s.DatabaseURL = GetEnv("DATABASE_URL", s.DatabaseURL)
	s.DatabaseMaxConns = GetEnvInt("DATABASE_MAX_CONNS", s.DatabaseMaxConns)
	s.RedisAddr = GetEnv("REDIS_ADDR", s.RedisAddr)
	s.RedisPassword = GetEnv("REDIS_PASSWORD", s.RedisPassword)
	s.RedisDB = GetEnvInt("REDIS_DB", s.RedisDB)
	s.EventChannelPrefix = GetEnv("EVENT_CHANNEL_PREFIX", s.EventChannelPrefix)
	s.UserServiceURL = GetEnv("USER_SERVICE_URL", s.UserServiceURL)
	s.InternalAPIKey = GetEnv("INTERNAL_API_KEY", s.InternalAPIKey)
}

func (s Store) GetDatabaseURL() string { return s.DatabaseURL }
func (s Store) GetDatabaseMaxConns() int { return s.DatabaseMaxConns }
func (s Store) GetRedisAddr() string { return s.RedisAddr }
func (s Store) GetRedisPassword() string { return s.RedisPassword }
func (s Store) GetRedisDB() int { return s.RedisDB }
func (s Store) GetEventChannelPrefix() string { return s.EventChannelPrefix }
func (s Store) GetUserServiceURL() string { return s.UserServiceURL }
func (s Store) GetInternalAPIKey() string { return s.InternalAPIKey }
