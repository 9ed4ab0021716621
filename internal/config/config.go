package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"dokan/backend/internal/storage"
)

type Config struct {
	StorageDriver string
	DataDir       string
	SQLitePath    string
	DatabaseURL   string
	MySQLDSN      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PathStyle       bool

	GCSBucket          string
	GCSCredentialsJSON string

	PrimarySlot       string
	BackupSlot        string
	WriteRetries      int
	WriteRetryBackoff time.Duration

	BusinessTimezone string
	PhoneRegion      string

	// WriterLock serializes writers from several processes with a redis lock.
	WriterLock    bool
	WriterLockTTL time.Duration

	PubSubProject         string
	PubSubTopic           string
	PubSubCredentialsJSON string

	LogLevel  string
	LogFormat string
}

// Load reads the environment. Values from a .env file in the working
// directory are used for keys the environment does not set.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	retries, err := strconv.Atoi(getEnv("WRITE_RETRIES", "2"))
	if err != nil || retries < 0 {
		retries = 2
	}
	backoffMS, err := strconv.Atoi(getEnv("WRITE_RETRY_BACKOFF_MS", "50"))
	if err != nil || backoffMS < 0 {
		backoffMS = 50
	}
	lockTTL, err := strconv.Atoi(getEnv("WRITER_LOCK_TTL_SECONDS", "10"))
	if err != nil || lockTTL < 1 {
		lockTTL = 10
	}

	prefix := getEnv("SLOT_PREFIX", "backoffice")
	cfg := Config{
		StorageDriver: getEnv("STORAGE_DRIVER", string(storage.DriverFS)),
		DataDir:       getEnv("DATA_DIR", "data"),
		SQLitePath:    getEnv("SQLITE_PATH", "data/backoffice.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		MySQLDSN:      os.Getenv("MYSQL_DSN"),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PathStyle:       getBool("S3_PATH_STYLE"),

		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSCredentialsJSON: os.Getenv("GCS_CREDENTIALS_JSON"),

		PrimarySlot:       getEnv("PRIMARY_SLOT", prefix+"-primary"),
		BackupSlot:        getEnv("BACKUP_SLOT", prefix+"-backup"),
		WriteRetries:      retries,
		WriteRetryBackoff: time.Duration(backoffMS) * time.Millisecond,

		BusinessTimezone: getEnv("BUSINESS_TIMEZONE", "Asia/Dhaka"),
		PhoneRegion:      strings.ToUpper(getEnv("PHONE_REGION", "BD")),

		WriterLock:    getBool("WRITER_LOCK"),
		WriterLockTTL: time.Duration(lockTTL) * time.Second,

		PubSubProject:         firstEnv("PUBSUB_PROJECT", "PUBSUB_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"),
		PubSubTopic:           os.Getenv("PUBSUB_TOPIC"),
		PubSubCredentialsJSON: os.Getenv("PUBSUB_CREDENTIALS_JSON"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
	return cfg
}

// StorageConfig returns the backend settings for storage.Open.
func (c Config) StorageConfig() (storage.Config, error) {
	driver, err := storage.ParseDriver(c.StorageDriver)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:        driver,
		DataDir:       c.DataDir,
		SQLitePath:    c.SQLitePath,
		DatabaseURL:   c.DatabaseURL,
		MySQLDSN:      c.MySQLDSN,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		S3: storage.S3Config{
			Bucket:          c.S3Bucket,
			Region:          c.S3Region,
			Endpoint:        c.S3Endpoint,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretAccessKey,
			PathStyle:       c.S3PathStyle,
		},
		GCSBucket:          c.GCSBucket,
		GCSCredentialsJSON: c.GCSCredentialsJSON,
	}, nil
}

// Location resolves BusinessTimezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return nil, fmt.Errorf("BUSINESS_TIMEZONE: %w", err)
	}
	return loc, nil
}

// NewLogger builds the process logger. format is "json" or "text".
func NewLogger(level, format string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	switch strings.ToLower(format) {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)
	return logger, nil
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getBool(key string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return v
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
