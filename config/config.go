package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	Port            = "server.port"
	Secret          = "server.secret"
	ShutdownTimeout = "server.shutdown_timeout"

	DBDriver          = "database.driver"
	DBURL             = "database.mysql"
	DBMaxOpenConns    = "database.max_open_conns"
	DBMaxIdleConns    = "database.max_idle_conns"
	DBConnMaxLifetime = "database.conn_max_lifetime"
	DBMemoryEvents    = "database.memory_events"

	RedisAddress            = "redis.address"
	RedisPassword           = "redis.password"
	RedisDB                 = "redis.db"
	RedisIdempotencyTTL     = "redis.idempotency_ttl"
	RedisIdempotencyLockTTL = "redis.idempotency_lock_ttl"

	MaxTicketsPerUser = "tickets.max_per_user"
	ReservationTTL    = "tickets.reservation_ttl"

	NotifyDriver = "notify.driver"

	MailersendAPIKey    = "mailersend.api_key"
	MailersendFromEmail = "mailersend.from_email"
	MailersendFromName  = "mailersend.from_name"

	TwilioAccountSID = "twilio.account_sid"
	TwilioAuthToken  = "twilio.auth_token"
	TwilioURL        = "twilio.url"
	TwilioFrom       = "twilio.from"

	AMQPURL        = "amqp.url"
	AMQPExchange   = "amqp.exchange"
	AMQPRoutingKey = "amqp.routing_key"

	LogLevel  = "log.level"
	LogFormat = "log.format"
)

const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"

	NotifyLog        = "log"
	NotifyMailersend = "mailersend"
	NotifyTwilio     = "twilio"
	NotifyAMQP       = "amqp"
)

func init() {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	SetDefaults()
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault(Port, "9000")
	viper.SetDefault(ShutdownTimeout, 10*time.Second)

	viper.SetDefault(DBDriver, DriverMySQL)
	viper.SetDefault(DBURL, "ticketing:ticketing@tcp(localhost:3306)/ticketing?parseTime=true&loc=UTC")
	viper.SetDefault(DBMaxOpenConns, 25)
	viper.SetDefault(DBMaxIdleConns, 5)
	viper.SetDefault(DBConnMaxLifetime, 5*time.Minute)

	viper.SetDefault(RedisDB, 0)
	viper.SetDefault(RedisIdempotencyTTL, 24*time.Hour)
	viper.SetDefault(RedisIdempotencyLockTTL, time.Minute)

	viper.SetDefault(MaxTicketsPerUser, 10)
	viper.SetDefault(ReservationTTL, 15*time.Minute)

	viper.SetDefault(NotifyDriver, NotifyLog)
	viper.SetDefault(MailersendFromName, "Ticketing")
	viper.SetDefault(TwilioURL, "https://api.twilio.com/2010-04-01/Accounts")
	viper.SetDefault(AMQPExchange, "tickets")
	viper.SetDefault(AMQPRoutingKey, "ticket.purchased")

	viper.SetDefault(LogLevel, "info")
	viper.SetDefault(LogFormat, "text")
}

// Load reads the optional .env file, the command line flags and the optional
// config file into viper.
func Load(args []string) error {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("ticketing", pflag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to config file")
	fs.String("port", viper.GetString(Port), "Port to listen on")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("load: error parsing flags: %w", err)
	}

	if err := viper.BindPFlag(Port, fs.Lookup("port")); err != nil {
		return fmt.Errorf("load: error binding port flag: %w", err)
	}

	if *cfgPath == "" {
		return nil
	}

	viper.SetConfigFile(*cfgPath)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("load: error reading config %s: %w", *cfgPath, err)
	}

	return nil
}
