// server/config/config.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// --- Sub-structs, mirroring config.yaml ---

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Env            string   `mapstructure:"env"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TransferConfig bounds the retry of conflicting redistribution transactions.
type TransferConfig struct {
	MaxAttempts         int           `mapstructure:"maxAttempts"`
	BaseBackoff         time.Duration `mapstructure:"baseBackoff"`
	MaxBackoff          time.Duration `mapstructure:"maxBackoff"`
	TxTimeout           time.Duration `mapstructure:"txTimeout"`
	DefaultReorderLevel int           `mapstructure:"defaultReorderLevel"`
}

type NotificationConfig struct {
	DedupWindow   time.Duration `mapstructure:"dedupWindow"`
	Workers       int           `mapstructure:"workers"`
	QueueSize     int           `mapstructure:"queueSize"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
	SweepAge      time.Duration `mapstructure:"sweepAge"`
}

type FabricConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ChannelName       string `mapstructure:"channelName"`
	ChaincodeName     string `mapstructure:"chaincodeName"`
	OrgName           string `mapstructure:"orgName"`
	UserName          string `mapstructure:"userName"`
	ConnectionProfile string `mapstructure:"connectionProfile"`
	UserCertPath      string `mapstructure:"userCertPath"`
	UserKeyDir        string `mapstructure:"userKeyDir"`
	WalletPath        string `mapstructure:"walletPath"`
	// LocalDiscovery rewrites discovered peer addresses to localhost (docker test networks).
	LocalDiscovery    bool   `mapstructure:"localDiscovery"`
}

type S3Config struct {
	Enabled          bool   `mapstructure:"enabled"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
	Prefix           string `mapstructure:"prefix"`
}

// --- Root config ---

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Mongo        MongoConfig        `mapstructure:"mongo"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Log          LogConfig          `mapstructure:"log"`
	Transfer     TransferConfig     `mapstructure:"transfer"`
	Notification NotificationConfig `mapstructure:"notification"`
	Fabric       FabricConfig       `mapstructure:"fabric"`
	S3           S3Config           `mapstructure:"s3"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("mongo.dbName", "pharma_redistribution")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("transfer.maxAttempts", 3)
	v.SetDefault("transfer.baseBackoff", "50ms")
	v.SetDefault("transfer.maxBackoff", "1s")
	v.SetDefault("transfer.txTimeout", "5s")
	v.SetDefault("transfer.defaultReorderLevel", 10)
	v.SetDefault("notification.dedupWindow", "24h")
	v.SetDefault("notification.workers", 2)
	v.SetDefault("notification.queueSize", 256)
	v.SetDefault("notification.sweepInterval", "30s")
	v.SetDefault("notification.sweepAge", "1m")
	v.SetDefault("fabric.walletPath", "wallet")
	v.SetDefault("fabric.chaincodeName", "audit")
	v.SetDefault("s3.prefix", "redistribution-logs")
}

// Env vars are bound explicitly; "mongo.uri" is read from MONGO_URI and so on.
var envBindings = map[string]string{
	"server.port":                  "SERVER_PORT",
	"server.env":                   "APP_ENV",
	"server.allowedOrigins":        "ALLOWED_ORIGINS",
	"mongo.uri":                    "MONGO_URI",
	"mongo.dbName":                 "MONGO_DBNAME",
	"redis.enabled":                "REDIS_ENABLED",
	"redis.addr":                   "REDIS_ADDR",
	"redis.password":               "REDIS_PASSWORD",
	"redis.db":                     "REDIS_DB",
	"jwt.secret":                   "JWT_SECRET",
	"log.level":                    "LOG_LEVEL",
	"log.format":                   "LOG_FORMAT",
	"log.output":                   "LOG_OUTPUT",
	"transfer.maxAttempts":         "TRANSFER_MAX_ATTEMPTS",
	"transfer.txTimeout":           "TRANSFER_TX_TIMEOUT",
	"transfer.defaultReorderLevel": "TRANSFER_DEFAULT_REORDER_LEVEL",
	"notification.dedupWindow":     "NOTIFICATION_DEDUP_WINDOW",
	"fabric.enabled":               "FABRIC_ENABLED",
	"fabric.connectionProfile":     "FABRIC_CONNECTION_PROFILE",
	"fabric.userCertPath":          "FABRIC_USER_CERT_PATH",
	"fabric.userKeyDir":            "FABRIC_USER_KEY_DIR",
	"fabric.localDiscovery":        "FABRIC_LOCAL_DISCOVERY",
	"s3.enabled":                   "S3_ENABLED",
	"s3.bucket":                    "S3_BUCKET",
	"s3.region":                    "S3_REGION",
	"s3.accessKeyID":               "S3_ACCESS_KEY_ID",
	"s3.secretAccessKey":           "S3_SECRET_ACCESS_KEY",
	"s3.cloudFrontDomain":          "S3_CLOUDFRONT_DOMAIN",
}

// LoadConfig reads config.yaml from path and overlays environment variables.
// A missing file is fine; only env vars and defaults are used then.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.Validate()
	return
}

func (c Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Transfer.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("transfer.maxAttempts must be at least 1, got %d", c.Transfer.MaxAttempts))
	}
	if c.Transfer.DefaultReorderLevel < 0 {
		errs = append(errs, fmt.Errorf("transfer.defaultReorderLevel must not be negative, got %d", c.Transfer.DefaultReorderLevel))
	}
	if c.S3.Enabled && (c.S3.Bucket == "" || c.S3.Region == "") {
		errs = append(errs, errors.New("s3.bucket and s3.region are required when s3 is enabled"))
	}
	if c.Fabric.Enabled && c.Fabric.ConnectionProfile == "" {
		errs = append(errs, errors.New("fabric.connectionProfile is required when fabric is enabled"))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}
