package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
	} `yaml:"database"`

	Search struct {
		APIKey        string   `yaml:"api_key"`
		EngineID      string   `yaml:"engine_id"`
		Endpoint      string   `yaml:"endpoint"`
		ExcludedHosts []string `yaml:"excluded_hosts"`
	} `yaml:"search"`

	Extractor struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
		MaxLength      int `yaml:"max_length"`
	} `yaml:"extractor"`

	Pipeline struct {
		DisableSearch    bool `yaml:"disable_search"`
		DisableSynthesis bool `yaml:"disable_synthesis"`
		SearchResults    int  `yaml:"search_results"`
		MinSourceChars   int  `yaml:"min_source_chars"`
		DocumentDelayMs  int  `yaml:"document_delay_ms"`
		FetchDelayMs     int  `yaml:"fetch_delay_ms"`
	} `yaml:"pipeline"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/amp/config.yaml"),
			"/etc/amp/config.yaml",
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
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
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
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 4000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "documents"
	}

	if config.Search.Endpoint == "" {
		config.Search.Endpoint = "https://www.googleapis.com/customsearch/v1"
	}

	if config.Extractor.TimeoutSeconds == 0 {
		config.Extractor.TimeoutSeconds = 15
	}
	if config.Extractor.MaxLength == 0 {
		config.Extractor.MaxLength = 5000
	}

	if config.Pipeline.SearchResults == 0 {
		config.Pipeline.SearchResults = 2
	}
	if config.Pipeline.MinSourceChars == 0 {
		config.Pipeline.MinSourceChars = 200
	}
	if config.Pipeline.DocumentDelayMs == 0 {
		config.Pipeline.DocumentDelayMs = 2000
	}
	if config.Pipeline.FetchDelayMs == 0 {
		config.Pipeline.FetchDelayMs = 1000
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if apiKey := os.Getenv("SEARCH_API_KEY"); apiKey != "" {
		config.Search.APIKey = apiKey
	}
	if engineID := os.Getenv("SEARCH_ENGINE_ID"); engineID != "" {
		config.Search.EngineID = engineID
	}
	if v := os.Getenv("AMP_DISABLE_SEARCH"); v != "" {
		if disabled, err := strconv.ParseBool(v); err == nil {
			config.Pipeline.DisableSearch = disabled
		}
	}
	if v := os.Getenv("AMP_DISABLE_SYNTHESIS"); v != "" {
		if disabled, err := strconv.ParseBool(v); err == nil {
			config.Pipeline.DisableSynthesis = disabled
		}
	}
}
