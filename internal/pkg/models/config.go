package models

import "time"

// Config holds all runtime configuration for the dispatch process.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NSQ      NSQConfig      `mapstructure:"nsq"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Routing  RoutingConfig  `mapstructure:"routing"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`
	WriteTimeout    int `mapstructure:"write_timeout"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	SSLMode   string `mapstructure:"ssl_mode"`
	MaxConns  int    `mapstructure:"max_conns"`
	IdleConns int    `mapstructure:"idle_conns"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// NSQConfig holds NSQ daemon configuration
type NSQConfig struct {
	Address string `mapstructure:"address"`
}

// JWTConfig holds JWT validation configuration for websocket subscribers
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// DispatchConfig holds matching and state machine policy values.
// These are operator-tunable policy constants, not invariants of the algorithm.
type DispatchConfig struct {
	MaxRadiusKm          float64       `mapstructure:"max_radius_km"`
	PreferredRadiusKm    float64       `mapstructure:"preferred_radius_km"`
	GeofenceKm           float64       `mapstructure:"geofence_km"`
	MinMatchScore        float64       `mapstructure:"min_match_score"`
	PresenceTTL          time.Duration `mapstructure:"presence_ttl"`
	BroadcastInterval    time.Duration `mapstructure:"broadcast_interval"`
	StoreTimeout         time.Duration `mapstructure:"store_timeout"`
	CancelFeeAcceptedPct float64       `mapstructure:"cancel_fee_accepted_pct"`
	CancelFeeOngoingPct  float64       `mapstructure:"cancel_fee_ongoing_pct"`
}

// PricingConfig holds pricing engine windows and surge tuning knobs.
// Monetary base values live in the pricing_config table.
type PricingConfig struct {
	Currency         string        `mapstructure:"currency"`
	ConfigCacheTTL   time.Duration `mapstructure:"config_cache_ttl"`
	SurgeLookback    time.Duration `mapstructure:"surge_lookback"`
	SupplyRadiusKm   float64       `mapstructure:"supply_radius_km"`
	DemandCellDigits uint          `mapstructure:"demand_cell_digits"`
	RushHourStart1   int           `mapstructure:"rush_hour_start_1"`
	RushHourEnd1     int           `mapstructure:"rush_hour_end_1"`
	RushHourStart2   int           `mapstructure:"rush_hour_start_2"`
	RushHourEnd2     int           `mapstructure:"rush_hour_end_2"`
	NightStart       int           `mapstructure:"night_start"`
	NightEnd         int           `mapstructure:"night_end"`
}

// RoutingConfig holds the external routing collaborator configuration
type RoutingConfig struct {
	OSRMEndpoint string        `mapstructure:"osrm_endpoint"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CitySpeedKmh float64       `mapstructure:"city_speed_kmh"`
}

// PaymentConfig holds the payment collaborator configuration
type PaymentConfig struct {
	StripeAPIKey string `mapstructure:"stripe_api_key"`
	Enabled      bool   `mapstructure:"enabled"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	FilePath string `mapstructure:"file_path"`
}
