package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/answer"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/extractor"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/parser"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/retrieval"
	"github.com/yungbote/reviewer-backend/internal/platform/envutil"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	EmbedModel     string `yaml:"embed_model"`
	MaxRetries     int    `yaml:"max_retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type OCRConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DPI      int    `yaml:"dpi"`
	Language string `yaml:"language"`
	// Credentials is a service account path or inline JSON; empty uses ADC.
	Credentials string `yaml:"credentials"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type OtelSettings struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	Headers     string  `yaml:"headers"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type Config struct {
	Port        string   `yaml:"port"`
	LogMode     string   `yaml:"log_mode"`
	Environment string   `yaml:"environment"`
	CORSOrigins []string `yaml:"cors_origins"`
	MetricsAddr string   `yaml:"metrics_addr"`

	JWTSecretKey string `yaml:"jwt_secret_key"`

	ChunksDir       string `yaml:"chunks_dir"`
	IndexDir        string `yaml:"index_dir"`
	UploadDir       string `yaml:"upload_dir"`
	MaxUploadMB     int    `yaml:"max_upload_mb"`
	DefaultExamType string `yaml:"default_exam_type"`
	DefaultTopic    string `yaml:"default_topic"`
	ExamName        string `yaml:"exam_name"`

	EmbedRPS             float64 `yaml:"embed_rps"`
	RetrievalTopK        int     `yaml:"retrieval_top_k"`
	RetrievalMaxDistance float64 `yaml:"retrieval_max_distance"`
	AIParseThreshold     int     `yaml:"ai_parse_threshold"`
	AIParseModel         string  `yaml:"ai_parse_model"`
	AnswerTemperature    float64 `yaml:"answer_temperature"`

	ExternalCallTimeoutSeconds int `yaml:"external_call_timeout_seconds"`
	ShutdownTimeoutSeconds     int `yaml:"shutdown_timeout_seconds"`

	OpenAI OpenAIConfig `yaml:"openai"`
	OCR    OCRConfig    `yaml:"ocr"`
	Redis  RedisConfig  `yaml:"redis"`
	Otel   OtelSettings `yaml:"otel"`
}

func defaultConfig() Config {
	return Config{
		Port:                       "8080",
		LogMode:                    "development",
		Environment:                "dev",
		ChunksDir:                  "data/chunks",
		IndexDir:                   "data/index",
		MaxUploadMB:                64,
		DefaultExamType:            domain.DefaultExamType,
		DefaultTopic:               domain.DefaultTopic,
		ExamName:                   answer.DefaultExamName,
		RetrievalTopK:              retrieval.DefaultTopK,
		RetrievalMaxDistance:       retrieval.DefaultMaxDistance,
		AIParseThreshold:           parser.DefaultAIThreshold,
		AIParseModel:               parser.DefaultAIModel,
		AnswerTemperature:          answer.DefaultTemperature,
		ExternalCallTimeoutSeconds: 60,
		ShutdownTimeoutSeconds:     15,
		OpenAI: OpenAIConfig{
			Model:      "gpt-4o-mini",
			EmbedModel: "text-embedding-3-small",
			MaxRetries: 3,
		},
		OCR: OCRConfig{
			Enabled:  true,
			DPI:      extractor.DefaultDPI,
			Language: extractor.DefaultLanguage,
		},
		Redis: RedisConfig{TTLSeconds: 30 * 24 * 3600},
		Otel: OtelSettings{
			ServiceName: "reviewer-backend",
			SampleRatio: 1,
		},
	}
}

// LoadConfig layers defaults, the optional YAML file named by
// REVIEWER_CONFIG, and environment variables (a local .env is loaded first
// when present). Environment values win.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("could not load .env", "error", err)
	}

	cfg := defaultConfig()
	if path := envutil.String("REVIEWER_CONFIG", ""); path != "" {
		if err := overlayYAML(&cfg, path); err != nil {
			return Config{}, err
		}
		log.Info("loaded config file", "path", path)
	}
	overlayEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlayYAML(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func overlayEnv(cfg *Config) {
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.CORSOrigins = envutil.List("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.MetricsAddr = envutil.String("METRICS_ADDR", cfg.MetricsAddr)

	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)

	cfg.ChunksDir = envutil.String("CHUNKS_DIR", cfg.ChunksDir)
	cfg.IndexDir = envutil.String("INDEX_DIR", cfg.IndexDir)
	cfg.UploadDir = envutil.String("UPLOAD_DIR", cfg.UploadDir)
	cfg.MaxUploadMB = envutil.Int("MAX_UPLOAD_MB", cfg.MaxUploadMB)
	cfg.DefaultExamType = envutil.String("DEFAULT_EXAM_TYPE", cfg.DefaultExamType)
	cfg.DefaultTopic = envutil.String("DEFAULT_TOPIC", cfg.DefaultTopic)
	cfg.ExamName = envutil.String("EXAM_NAME", cfg.ExamName)

	cfg.EmbedRPS = envutil.Float("EMBED_RPS", cfg.EmbedRPS)
	cfg.RetrievalTopK = envutil.Int("RETRIEVAL_TOP_K", cfg.RetrievalTopK)
	cfg.RetrievalMaxDistance = envutil.Float("RETRIEVAL_MAX_DISTANCE", cfg.RetrievalMaxDistance)
	cfg.AIParseThreshold = envutil.Int("AI_PARSE_THRESHOLD", cfg.AIParseThreshold)
	cfg.AIParseModel = envutil.String("AI_PARSE_MODEL", cfg.AIParseModel)
	cfg.AnswerTemperature = envutil.Float("ANSWER_TEMPERATURE", cfg.AnswerTemperature)

	cfg.ExternalCallTimeoutSeconds = envutil.Int("EXTERNAL_CALL_TIMEOUT_SECONDS", cfg.ExternalCallTimeoutSeconds)
	cfg.ShutdownTimeoutSeconds = envutil.Int("SHUTDOWN_TIMEOUT_SECONDS", cfg.ShutdownTimeoutSeconds)

	cfg.OpenAI.APIKey = envutil.String("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = envutil.String("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.Model = envutil.String("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.EmbedModel = envutil.String("OPENAI_EMBED_MODEL", cfg.OpenAI.EmbedModel)
	cfg.OpenAI.MaxRetries = envutil.Int("OPENAI_MAX_RETRIES", cfg.OpenAI.MaxRetries)
	cfg.OpenAI.TimeoutSeconds = envutil.Int("OPENAI_TIMEOUT_SECONDS", cfg.OpenAI.TimeoutSeconds)

	cfg.OCR.Enabled = envutil.Bool("OCR_ENABLED", cfg.OCR.Enabled)
	cfg.OCR.DPI = envutil.Int("OCR_DPI", cfg.OCR.DPI)
	cfg.OCR.Language = envutil.String("OCR_LANGUAGE", cfg.OCR.Language)
	cfg.OCR.Credentials = envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON",
		envutil.String("GOOGLE_APPLICATION_CREDENTIALS", cfg.OCR.Credentials))

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.TTLSeconds = envutil.Int("REDIS_EMBED_TTL_SECONDS", cfg.Redis.TTLSeconds)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.Otel.Headers)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", cfg.Otel.SampleRatio)
}

func (c *Config) validate() error {
	exam, ok := domain.NormalizeExamType(c.DefaultExamType)
	if !ok {
		return fmt.Errorf("invalid DEFAULT_EXAM_TYPE %q", c.DefaultExamType)
	}
	c.DefaultExamType = exam
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", c.RetrievalTopK)
	}
	if c.RetrievalMaxDistance <= 0 {
		return fmt.Errorf("RETRIEVAL_MAX_DISTANCE must be positive, got %g", c.RetrievalMaxDistance)
	}
	if c.AnswerTemperature < 0 || c.AnswerTemperature > 2 {
		return fmt.Errorf("ANSWER_TEMPERATURE must be within [0, 2], got %g", c.AnswerTemperature)
	}
	if strings.TrimSpace(c.ChunksDir) == "" || strings.TrimSpace(c.IndexDir) == "" {
		return fmt.Errorf("CHUNKS_DIR and INDEX_DIR are required")
	}
	return nil
}

func (c Config) CallTimeout() time.Duration {
	if c.ExternalCallTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.ExternalCallTimeoutSeconds) * time.Second
}

func (c Config) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
