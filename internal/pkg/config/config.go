package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/okapiride/dispatch/internal/pkg/models"
)

// Load reads configuration from an optional file plus environment variables.
// Environment keys use underscores, e.g. DISPATCH_GEOFENCE_KM overrides
// dispatch.geofence_km. Every policy constant carries a default so the binary
// runs locally without setup.
func Load(configPath string) *models.Config {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("config file not loaded (%v), continuing with env and defaults", err)
		}
	}

	cfg := &models.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "okapi-dispatch")
	v.SetDefault("app.environment", "local")
	v.SetDefault("app.version", "dev")

	v.SetDefault("server.port", 9990)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.shutdown_timeout", 30)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "dispatch")
	v.SetDefault("database.password", "dispatch")
	v.SetDefault("database.database", "dispatch")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 16)
	v.SetDefault("database.idle_conns", 4)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 16)

	v.SetDefault("nsq.address", "localhost:4150")

	v.SetDefault("jwt.issuer", "okapi-dispatch")

	v.SetDefault("dispatch.max_radius_km", 5.0)
	v.SetDefault("dispatch.preferred_radius_km", 1.0)
	v.SetDefault("dispatch.geofence_km", 5.0)
	v.SetDefault("dispatch.min_match_score", 30.0)
	v.SetDefault("dispatch.presence_ttl", 5*time.Minute)
	v.SetDefault("dispatch.broadcast_interval", 2*time.Second)
	v.SetDefault("dispatch.store_timeout", 2*time.Second)
	v.SetDefault("dispatch.cancel_fee_accepted_pct", 10.0)
	v.SetDefault("dispatch.cancel_fee_ongoing_pct", 30.0)

	v.SetDefault("pricing.currency", "CDF")
	v.SetDefault("pricing.config_cache_ttl", time.Minute)
	v.SetDefault("pricing.surge_lookback", 10*time.Minute)
	v.SetDefault("pricing.supply_radius_km", 5.0)
	v.SetDefault("pricing.demand_cell_digits", 5)
	v.SetDefault("pricing.rush_hour_start_1", 7)
	v.SetDefault("pricing.rush_hour_end_1", 9)
	v.SetDefault("pricing.rush_hour_start_2", 17)
	v.SetDefault("pricing.rush_hour_end_2", 19)
	v.SetDefault("pricing.night_start", 22)
	v.SetDefault("pricing.night_end", 5)

	v.SetDefault("routing.osrm_endpoint", "")
	v.SetDefault("routing.timeout", 2*time.Second)
	v.SetDefault("routing.city_speed_kmh", 28.0)

	v.SetDefault("payment.enabled", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.file_path", "")
}
