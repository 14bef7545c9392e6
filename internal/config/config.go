package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"p2p-lending/internal/domain/loan"
	"p2p-lending/internal/infrastructure/db"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppPort  string
	LogLevel string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	MySQLMaxOpenConns int
	MySQLMaxIdleConns int

	MigrationsPath string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	PlatformFee         decimal.Decimal
	OverdueGraceDays    int
	DefaultAfterDays    int
	DefaultMinOverdue   int
	LateFeeRate         decimal.Decimal
	LateFeeMin          decimal.Decimal
	OfferTTLHours       int
	ReopenExpiresOffers bool

	SchedulerEnabled bool
	CollectInterval  time.Duration
	OverdueInterval  time.Duration
	RollupInterval   time.Duration
	ExpireInterval   time.Duration

	NotificationStream string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// Load reads the environment. A .env file in the working directory, if
// present, fills in variables that are not already set.
func Load() *Config {
	_ = godotenv.Load()

	p := loan.DefaultPolicy()
	dbDefaults := db.DefaultOptions()
	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "lending"),
		MySQLUser: getenv("MYSQL_USER", "lending"),
		MySQLPass: getenv("MYSQL_PASS", "lending"),

		MySQLMaxOpenConns: intEnv("MYSQL_MAX_OPEN_CONNS", dbDefaults.MaxOpenConns),
		MySQLMaxIdleConns: intEnv("MYSQL_MAX_IDLE_CONNS", dbDefaults.MaxIdleConns),

		MigrationsPath: getenv("MIGRATIONS_PATH", "migrations"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:      intEnv("REDIS_DB", 0),
		IdempTTLSecs: intEnv("IDEMPOTENCY_TTL_SECONDS", 300),

		PlatformFee:         decEnv("PLATFORM_FEE", p.PlatformFee),
		OverdueGraceDays:    intEnv("OVERDUE_GRACE_DAYS", p.OverdueAfterDays),
		DefaultAfterDays:    intEnv("DEFAULT_AFTER_DAYS", p.DefaultAfterDays),
		DefaultMinOverdue:   intEnv("DEFAULT_MIN_OVERDUE", p.DefaultMinOverdue),
		LateFeeRate:         decEnv("LATE_FEE_RATE", p.LateFeeRate),
		LateFeeMin:          decEnv("LATE_FEE_MIN", p.LateFeeMin),
		OfferTTLHours:       intEnv("OFFER_TTL_HOURS", int(p.OfferTTL/time.Hour)),
		ReopenExpiresOffers: boolEnv("REOPEN_EXPIRES_OFFERS", p.ReopenExpiresOffers),

		SchedulerEnabled: boolEnv("SCHEDULER_ENABLED", true),
		CollectInterval:  durEnv("COLLECT_INTERVAL", time.Hour),
		OverdueInterval:  durEnv("OVERDUE_INTERVAL", 24*time.Hour),
		RollupInterval:   durEnv("ROLLUP_INTERVAL", 24*time.Hour),
		ExpireInterval:   durEnv("EXPIRE_INTERVAL", time.Hour),

		NotificationStream: getenv("NOTIFICATION_STREAM", "lending:notifications"),
	}
	return c
}

func intEnv(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func boolEnv(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

func durEnv(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if t, err := time.ParseDuration(v); err == nil {
			return t
		}
	}
	return d
}

func decEnv(k string, d decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(k); v != "" {
		if n, err := decimal.NewFromString(v); err == nil {
			return n
		}
	}
	return d
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.MySQLMaxOpenConns < 1 || c.MySQLMaxIdleConns < 0 {
		return errors.New("invalid MySQL pool size")
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.PlatformFee.IsNegative() || c.LateFeeRate.IsNegative() || c.LateFeeMin.IsNegative() {
		return errors.New("fees must not be negative")
	}
	if c.OverdueGraceDays < 0 || c.DefaultAfterDays < 0 || c.DefaultMinOverdue < 1 {
		return errors.New("invalid overdue thresholds")
	}
	if c.SchedulerEnabled {
		for name, d := range map[string]time.Duration{
			"COLLECT_INTERVAL": c.CollectInterval,
			"OVERDUE_INTERVAL": c.OverdueInterval,
			"ROLLUP_INTERVAL":  c.RollupInterval,
			"EXPIRE_INTERVAL":  c.ExpireInterval,
		} {
			if d <= 0 {
				return fmt.Errorf("%s must be positive", name)
			}
		}
	}
	return nil
}

// Policy overlays the configured business constants on the defaults.
func (c *Config) Policy() loan.Policy {
	p := loan.DefaultPolicy()
	p.PlatformFee = c.PlatformFee
	p.OverdueAfterDays = c.OverdueGraceDays
	p.DefaultAfterDays = c.DefaultAfterDays
	p.DefaultMinOverdue = c.DefaultMinOverdue
	p.LateFeeRate = c.LateFeeRate
	p.LateFeeMin = c.LateFeeMin
	p.OfferTTL = time.Duration(c.OfferTTLHours) * time.Hour
	p.ReopenExpiresOffers = c.ReopenExpiresOffers
	return p
}

// DBOptions sizes the MySQL pool; SQL logging follows LOG_LEVEL=debug.
func (c *Config) DBOptions() db.Options {
	o := db.DefaultOptions()
	o.Debug = c.LogLevel == "debug"
	o.MaxOpenConns = c.MySQLMaxOpenConns
	o.MaxIdleConns = c.MySQLMaxIdleConns
	return o
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// MigrateURL is the DSN in golang-migrate's mysql:// form.
func (c *Config) MigrateURL() string {
	return "mysql://" + c.MySQLDSN()
}
