package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	StorageLocal      = "local"
	StorageCloudinary = "cloudinary"
	StorageS3         = "s3"
)

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	PublicURL string
	// ObjectACL is a canned ACL such as "public-read"; empty sends none.
	ObjectACL string
}

type MailConfig struct {
	APIURL string
	APIKey string
	From   string
}

// Enabled reports whether reminder e-mails can be sent.
func (m MailConfig) Enabled() bool {
	return m.APIURL != "" && m.APIKey != "" && m.From != ""
}

type Config struct {
	Port        string
	MongoURI    string
	DBName      string
	StoreDriver string

	JWTSecret []byte
	TokenTTL  time.Duration

	StorageDriver string
	UploadDir     string
	Cloudinary    CloudinaryConfig
	S3            S3Config

	SchedulerEnabled bool
	SchedulerCron    string
	Location         *time.Location

	CORSOrigins []string
	NatsURL     string
	Mail        MailConfig

	MongoClient *mongo.Client
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "9000"),
		MongoURI:      os.Getenv("MONGODB_URL"),
		DBName:        getEnv("DB_NAME", "berprestasi"),
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
		TokenTTL:      time.Hour,
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageLocal)),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		},
		S3: S3Config{
			Region:    os.Getenv("AWS_REGION"),
			Bucket:    os.Getenv("AWS_S3_BUCKET"),
			Endpoint:  os.Getenv("S3_ENDPOINT_URL"),
			PublicURL: os.Getenv("S3_PUBLIC_URL"),
			ObjectACL: os.Getenv("S3_OBJECT_ACL"),
		},
		SchedulerEnabled: !strings.EqualFold(os.Getenv("SCHEDULER_ENABLED"), "false"),
		SchedulerCron:    getEnv("SCHEDULER_CRON", "* * * * *"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
		NatsURL:          os.Getenv("NATS_URL"),
		Mail: MailConfig{
			APIURL: os.Getenv("ZEPTO_API_URL"),
			APIKey: os.Getenv("ZEPTO_API_KEY"),
			From:   os.Getenv("EMAIL_FROM"),
		},
	}

	if ttl := strings.TrimSpace(os.Getenv("JWT_TTL")); ttl != "" {
		parsed, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_TTL value %q: %w", ttl, err)
		}
		cfg.TokenTTL = parsed
	}

	tz := getEnv("TIMEZONE", "Asia/Jakarta")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE value %q: %w", tz, err)
	}
	cfg.Location = loc

	return cfg, nil
}

// Validate checks every configuration section and reports the first one that
// is incomplete.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return fmt.Errorf("server configuration: %w", err)
	}
	if err := c.validateDatabase(); err != nil {
		return fmt.Errorf("database configuration: %w", err)
	}
	if err := c.validateJWT(); err != nil {
		return fmt.Errorf("jwt configuration: %w", err)
	}
	if err := c.validateStorage(); err != nil {
		return fmt.Errorf("storage configuration: %w", err)
	}
	if c.SchedulerEnabled && strings.TrimSpace(c.SchedulerCron) == "" {
		return fmt.Errorf("scheduler configuration: SCHEDULER_CRON is empty")
	}
	return nil
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("PORT is empty")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.StoreDriver {
	case StoreMemory:
		return nil
	case StoreMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("MONGODB_URL environment variable is not set")
		}
		if strings.TrimSpace(c.DBName) == "" {
			return fmt.Errorf("DB_NAME is empty")
		}
		return nil
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
}

func (c *Config) validateJWT() error {
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	var required map[string]string
	switch c.StorageDriver {
	case StorageLocal:
		if strings.TrimSpace(c.UploadDir) == "" {
			return fmt.Errorf("UPLOAD_DIR is empty")
		}
		return nil
	case StorageCloudinary:
		required = map[string]string{
			"CLOUDINARY_CLOUD_NAME": c.Cloudinary.CloudName,
			"CLOUDINARY_API_KEY":    c.Cloudinary.APIKey,
			"CLOUDINARY_API_SECRET": c.Cloudinary.APISecret,
		}
	case StorageS3:
		required = map[string]string{
			"AWS_REGION":    c.S3.Region,
			"AWS_S3_BUCKET": c.S3.Bucket,
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	var missing []string
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ConnectMongo dials MONGODB_URL and stores the client on the config.
func (c *Config) ConnectMongo(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.MongoURI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("ping mongo: %w", err)
	}

	c.MongoClient = client
	return nil
}

// Database returns the configured database handle. ConnectMongo must have
// succeeded first.
func (c *Config) Database() *mongo.Database {
	return c.MongoClient.Database(c.DBName)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
