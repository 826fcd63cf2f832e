package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"tickcast/pkg/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	Stage       string          `validate:"oneof=development production test"`
	LogLevel    logger.LogLevel `validate:"oneof=DEBUG INFO WARNING ERROR"`
	LogFormat   string          `validate:"oneof=text json"`
	DebugMode   bool
	Port        string `validate:"required,numeric"`
	FrontendURL string
	StaticDir   string
	// Broadcast
	TickPeriod         time.Duration `validate:"gt=0"`
	SendTimeout        time.Duration `validate:"gt=0"`
	MaxConcurrentSends int           `validate:"gte=1"`
	MessageTemplate    string        `validate:"required,contains=%s"`
	TimeLayout         string        `validate:"required"`
	// Connections
	MaxConnections    int           `validate:"gte=0"`
	ConnectRateLimit  int           `validate:"gte=1"`
	ConnectRateWindow time.Duration `validate:"gt=0"`
	// Lifecycle
	ShutdownTimeout     time.Duration `validate:"gt=0"`
	ListenRetryAttempts int           `validate:"gte=1"`
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Loads the default configuration values.
// It reads the environment variables from the .env file, if present,
// and returns a Config struct with the loaded values.
func LoadDefaultConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Println("Error loading .env file: ", err)
	}

	return &Config{
		// Application
		Stage:       getEnv("STAGE", "development"),
		LogLevel:    logger.LogLevel(strings.ToUpper(getEnv("LOG_LEVEL", "INFO"))),
		LogFormat:   strings.ToLower(getEnv("LOG_FORMAT", "text")),
		DebugMode:   getEnvBool("DEBUG_MODE", false),
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		StaticDir:   getEnv("STATIC_DIR", "web"),
		// Broadcast
		TickPeriod:         getEnvDuration("TICK_PERIOD", 5*time.Second),
		SendTimeout:        getEnvDuration("SEND_TIMEOUT", 5*time.Second),
		MaxConcurrentSends: getEnvInt("MAX_CONCURRENT_SENDS", 100),
		MessageTemplate:    getEnv("MESSAGE_TEMPLATE", "Server time: %s"),
		TimeLayout:         getEnv("TIME_LAYOUT", "15:04:05"),
		// Connections
		MaxConnections:    getEnvInt("MAX_CONNECTIONS", 0), // unlimited
		ConnectRateLimit:  getEnvInt("CONNECT_RATE_LIMIT", 30),
		ConnectRateWindow: getEnvDuration("CONNECT_RATE_WINDOW", time.Minute),
		// Lifecycle
		ShutdownTimeout:     getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		ListenRetryAttempts: getEnvInt("LISTEN_RETRY_ATTEMPTS", 5),
	}
}

// Validate checks every field and reports all violations in a single error.
func (c *Config) Validate() error {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	validate := validator.New()
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return fmt.Errorf("register validation translations: %w", err)
	}

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	messages := make([]string, 0, len(validationErrs))
	for _, msg := range validationErrs.Translate(trans) {
		messages = append(messages, msg)
	}
	sort.Strings(messages)

	return fmt.Errorf("invalid config: %s", strings.Join(messages, "; "))
}

// AllowedOrigins splits FrontendURL into its comma separated origins.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.FrontendURL, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
