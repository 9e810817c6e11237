package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port               int      `env:"PORT" envDefault:"8000"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	DataDir            string   `env:"DATA_DIR" envDefault:"./data"`

	// History store. Empty means sqlite under DataDir.
	HistoryDatabaseURL string `env:"HISTORY_DATABASE_URL" envDefault:""`

	// Target datasource. DATASOURCE_URL wins; otherwise the URL is assembled
	// from DATABASE_TYPE plus the per-engine variables below.
	DatasourceURL string `env:"DATASOURCE_URL" envDefault:""`
	DatabaseType  string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	DatabasePath  string `env:"DATABASE_PATH" envDefault:"data/sample.db"`

	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:""`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:""`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:""`

	MySQLHost     string `env:"MYSQL_HOST" envDefault:"localhost"`
	MySQLPort     int    `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLDB       string `env:"MYSQL_DB" envDefault:""`
	MySQLUser     string `env:"MYSQL_USER" envDefault:""`
	MySQLPassword string `env:"MYSQL_PASSWORD" envDefault:""`

	QueryRowLimit int           `env:"QUERY_ROW_LIMIT" envDefault:"500"`
	QueryTimeout  time.Duration `env:"QUERY_TIMEOUT" envDefault:"30s"`

	LLMProvider     string `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMModel        string `env:"LLM_MODEL" envDefault:""`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY" envDefault:""`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY" envDefault:""`
	GeminiAPIKey    string `env:"GEMINI_API_KEY" envDefault:""`
	OllamaHost      string `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	LLMBaseURL      string `env:"LLM_BASE_URL" envDefault:""`
	LLMAPIKey       string `env:"LLM_API_KEY" envDefault:""`
	LLMMaxRetries   int    `env:"LLM_MAX_RETRIES" envDefault:"3"`
	LLMHistoryLimit int    `env:"LLM_HISTORY_LIMIT" envDefault:"10"`

	// Exports go to S3 when EXPORT_BUCKET is set, otherwise to DataDir/exports.
	ExportBucket      string `env:"EXPORT_BUCKET" envDefault:""`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL" envDefault:""`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" envDefault:""`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" envDefault:""`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// TargetURL returns the connection URL for the database queries run against.
func (c Config) TargetURL() (string, error) {
	if c.DatasourceURL != "" {
		return c.DatasourceURL, nil
	}

	switch c.DatabaseType {
	case "sqlite":
		return "sqlite:///" + c.DatabasePath, nil
	case "postgres", "postgresql":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB), nil
	case "mysql":
		return fmt.Sprintf("mysql://%s:%s@%s:%d/%s", c.MySQLUser, c.MySQLPassword, c.MySQLHost, c.MySQLPort, c.MySQLDB), nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// HistoryURL returns the connection URL for the query history store.
func (c Config) HistoryURL() string {
	if c.HistoryDatabaseURL != "" {
		return c.HistoryDatabaseURL
	}
	return "sqlite:///" + filepath.Join(c.DataDir, "easysql.db")
}
