package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Provider    string  `yaml:"provider"`
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedder struct {
		Provider  string  `yaml:"provider"`
		BaseURL   string  `yaml:"base_url"`
		Model     string  `yaml:"model"`
		BatchSize int     `yaml:"batch_size"`
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"embedder"`

	Database struct {
		Driver    string `yaml:"driver"`
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	Layout struct {
		Path string `yaml:"path"`
	} `yaml:"layout"`

	Processor struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	Retrieval struct {
		TopK int `yaml:"top_k"`
	} `yaml:"retrieval"`

	Extractor struct {
		Timeout       time.Duration `yaml:"timeout"`
		RateLimit     float64       `yaml:"rate_limit"`
		ExcludeLabels []string      `yaml:"exclude_labels"`
		HOCRClass     string        `yaml:"hocr_class"`
	} `yaml:"extractor"`

	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	UI struct {
		Verbose bool `yaml:"verbose"`
	} `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/pagecite/config.yaml"),
			"/etc/pagecite/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "openai" {
			config.LLM.Model = "gpt-3.5-turbo"
		} else {
			config.LLM.Model = "mistral"
		}
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.2
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedder.Provider == "" {
		config.Embedder.Provider = config.LLM.Provider
	}
	if config.Embedder.Model == "" {
		if config.Embedder.Provider == "openai" {
			config.Embedder.Model = "text-embedding-3-small"
		} else {
			config.Embedder.Model = "nomic-embed-text:latest"
		}
	}
	if config.Embedder.BaseURL == "" && config.Embedder.Provider == config.LLM.Provider {
		config.Embedder.BaseURL = config.LLM.BaseURL
	}
	if config.Embedder.BatchSize == 0 {
		config.Embedder.BatchSize = 32
	}
	if config.Embedder.RateLimit == 0 {
		config.Embedder.RateLimit = 5.0
	}

	if config.Database.Driver == "" {
		if config.Database.URL != "" {
			config.Database.Driver = "pgvector"
		} else {
			config.Database.Driver = "memory"
		}
	}
	if config.Database.TableName == "" {
		config.Database.TableName = "page_chunks"
	}
	if config.Database.VectorDim == 0 {
		if config.Embedder.Provider == "openai" {
			config.Database.VectorDim = 1536
		} else {
			config.Database.VectorDim = 768
		}
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Layout.Path == "" {
		config.Layout.Path = "application.db"
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 20
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 5
	}

	if config.Extractor.Timeout == 0 {
		config.Extractor.Timeout = 30 * time.Second
	}
	if config.Extractor.RateLimit == 0 {
		config.Extractor.RateLimit = 2.0
	}
	if config.Extractor.ExcludeLabels == nil {
		config.Extractor.ExcludeLabels = []string{"figure", "picture", "pageheader", "pagefooter", "table"}
	}
	if config.Extractor.HOCRClass == "" {
		config.Extractor.HOCRClass = "ocr_par"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8000"
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if layoutPath := os.Getenv("LAYOUT_DB_PATH"); layoutPath != "" {
		config.Layout.Path = layoutPath
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Addr = ":" + port
	}
}
