package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Knowledge KnowledgeConfig
	Session   SessionConfig
	Search    SearchConfig
	Weather   WeatherConfig
	Events    EventsConfig
	Features  FeatureFlags
	Tracing   TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	WebSocketLogPath   string
	CorsAllowedOrigins string
	ProxyHeader        string // e.g. "X-Forwarded-For" behind a reverse proxy
	StaticDir          string
	Timezone           string
}

type KnowledgeConfig struct {
	Dir       string
	RulesFile string
	Watch     bool
	Debounce  time.Duration
}

type SessionConfig struct {
	Backend   string // "memory" or "redis"
	RedisURL  string
	KeyPrefix string
}

type SearchConfig struct {
	WikipediaURL string
	UserAgent    string
	Timeout      time.Duration
}

type WeatherConfig struct {
	BaseURL   string
	Latitude  float64
	Longitude float64
	City      string
	Timeout   time.Duration
	CacheTTL  time.Duration
}

type EventsConfig struct {
	Topic   string // internal watermill topic
	NatsURL string // empty disables the NATS export
}

type FeatureFlags struct {
	ConfirmationFlow bool
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WebSocketLogPath:   getEnv("WS_LOG_FILE_PATH", "logs/websocket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			ProxyHeader:        getEnv("PROXY_HEADER", ""),
			StaticDir:          getEnv("STATIC_DIR", "./static"),
			Timezone:           getEnv("TIMEZONE", "Local"),
		},
		Knowledge: KnowledgeConfig{
			Dir:       getEnv("KNOWLEDGE_DIR", "./knowledge"),
			RulesFile: getEnv("KNOWLEDGE_RULES_FILE", "responses.json"),
			Watch:     getEnvAsBool("KNOWLEDGE_WATCH", true),
			Debounce:  getEnvAsDuration("KNOWLEDGE_DEBOUNCE", 500*time.Millisecond),
		},
		Session: SessionConfig{
			Backend:   getEnv("SESSION_BACKEND", "memory"),
			RedisURL:  getEnv("REDIS_URL", "redis://localhost:6379"),
			KeyPrefix: getEnv("SESSION_KEY_PREFIX", "chatbot:session:"),
		},
		Search: SearchConfig{
			WikipediaURL: getEnv("WIKIPEDIA_URL", "https://fr.wikipedia.org"),
			UserAgent:    getEnv("WIKIPEDIA_USER_AGENT", "rule-chatbot-be/1.0"),
			Timeout:      getEnvAsDuration("WIKIPEDIA_TIMEOUT", 10*time.Second),
		},
		Weather: WeatherConfig{
			BaseURL:   getEnv("WEATHER_BASE_URL", "https://api.open-meteo.com"),
			Latitude:  getEnvAsFloat("WEATHER_LATITUDE", 12.6392),
			Longitude: getEnvAsFloat("WEATHER_LONGITUDE", -8.0028),
			City:      getEnv("WEATHER_CITY", "Bamako"),
			Timeout:   getEnvAsDuration("WEATHER_TIMEOUT", 10*time.Second),
			CacheTTL:  getEnvAsDuration("WEATHER_CACHE_TTL", 10*time.Minute),
		},
		Events: EventsConfig{
			Topic:   getEnv("EVENTS_TOPIC", "chat_interactions"),
			NatsURL: getEnv("NATS_URL", ""),
		},
		Features: FeatureFlags{
			ConfirmationFlow: getEnvAsBool("CONFIRMATION_FLOW_ENABLED", false),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

// Location resolves the configured timezone, falling back to local time.
func (c AppConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("[WARN] Unknown TIMEZONE %q, using local time: %v", c.Timezone, err)
		return time.Local
	}
	return loc
}

func (c AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("15s") or plain seconds ("15").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
