package config

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

// Config holds shared runtime configuration for the API and build workers.
type Config struct {
	Env              string
	HTTPPort         string
	BaseURL          string
	WorkDir          string
	OutputDir        string
	BuildCommand     string
	BuildTimeout     time.Duration
	BuildOutputLimit int64
	FetchTimeout     time.Duration
	FetchMaxBytes    int64
	UserAgent        string
	Workers          int
	QueueCapacity    int
	ArtifactTTL      time.Duration
	ReapInterval     time.Duration

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RateLimitCapacity int
	RateLimitRefill   float64

	APKS3Bucket    string
	APKS3Region    string
	APKS3Endpoint  string
	APKS3PathStyle bool
}

// Load reads configuration from environment variables with sane defaults for local development.
func Load() Config {
	return Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPPort:         getEnv("HTTP_PORT", "3000"),
		BaseURL:          getEnv("BASE_URL", ""),
		WorkDir:          getEnv("WORK_DIR", "./temp"),
		OutputDir:        getEnv("OUTPUT_DIR", "./output"),
		BuildCommand:     getEnv("BUILD_COMMAND", defaultBuildCommand()),
		BuildTimeout:     getEnvDuration("BUILD_TIMEOUT", 5*time.Minute),
		BuildOutputLimit: getEnvInt64("BUILD_OUTPUT_LIMIT", 10*1024*1024),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		FetchMaxBytes:    getEnvInt64("FETCH_MAX_BYTES", 5*1024*1024),
		UserAgent:        getEnv("FETCH_USER_AGENT", "Web2Droid/1.0 (+https://web2droid.dev)"),
		Workers:          getEnvInt("BUILD_WORKERS", 2),
		QueueCapacity:    getEnvInt("QUEUE_CAPACITY", 64),
		ArtifactTTL:      getEnvDuration("ARTIFACT_TTL", 24*time.Hour),
		ReapInterval:     getEnvDuration("REAP_INTERVAL", time.Hour),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RateLimitCapacity: getEnvInt("RATE_LIMIT_CAPACITY", 10),
		RateLimitRefill:   getEnvFloat("RATE_LIMIT_REFILL_PER_SEC", 0.5),

		APKS3Bucket:    getEnv("APK_S3_BUCKET", ""),
		APKS3Region:    getEnv("APK_S3_REGION", "us-east-1"),
		APKS3Endpoint:  getEnv("APK_S3_ENDPOINT", ""),
		APKS3PathStyle: getEnvBool("APK_S3_PATH_STYLE", false),
	}
}

func defaultBuildCommand() string {
	if runtime.GOOS == "windows" {
		return "gradlew.bat assembleRelease"
	}
	return "./gradlew assembleRelease"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
