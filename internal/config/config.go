package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	NoBrowser  bool   `json:"no_browser"`
	DataDir    string `json:"data_dir"`
	DBPath     string `json:"-"`
	ImportDir  string `json:"import_dir"`
	BrowserCmd string `json:"browser_cmd,omitempty"`

	OpenAIKey   string `json:"openai_api_key,omitempty"`
	OpenAIModel string `json:"openai_model,omitempty"`

	WriteTimeout time.Duration `json:"-"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	dataDir := filepath.Join(home, ".daylog")
	return Config{
		Host:         "127.0.0.1",
		Port:         8089,
		DataDir:      dataDir,
		DBPath:       filepath.Join(dataDir, "journal.db"),
		ImportDir:    filepath.Join(dataDir, "import"),
		WriteTimeout: 30 * time.Second,
	}, nil
}

// Load builds a Config by layering: defaults < config file < env < flags.
// The provided FlagSet must already be parsed by the caller.
// Only flags that were explicitly set override the lower layers.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, config file, and
// env, without parsing CLI flags. Use this for subcommands that
// manage their own flag sets.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	// The data dir env var must win before the config file is
	// looked up, since it decides where that file lives.
	if v := os.Getenv("DAYLOG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()

	cfg.DBPath = filepath.Join(cfg.DataDir, "journal.db")
	if cfg.ImportDir == "" {
		cfg.ImportDir = filepath.Join(cfg.DataDir, "import")
	}
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		ImportDir   string `json:"import_dir"`
		BrowserCmd  string `json:"browser_cmd"`
		OpenAIKey   string `json:"openai_api_key"`
		OpenAIModel string `json:"openai_model"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.ImportDir != "" {
		c.ImportDir = file.ImportDir
	}
	if file.BrowserCmd != "" {
		c.BrowserCmd = file.BrowserCmd
	}
	if file.OpenAIKey != "" {
		c.OpenAIKey = file.OpenAIKey
	}
	if file.OpenAIModel != "" {
		c.OpenAIModel = file.OpenAIModel
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("DAYLOG_IMPORT_DIR"); v != "" {
		c.ImportDir = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIKey = v
	}
}

// RegisterServeFlags registers serve-command flags on fs.
// The caller must call fs.Parse before passing fs to Load.
func RegisterServeFlags(fs *flag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8089, "Port to listen on")
	fs.Bool(
		"no-browser", false,
		"Don't open browser on startup",
	)
	fs.String("import-dir", "", "CSV drop directory to watch")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = f.Value.String()
		case "port":
			// flag already validated the int; ignore parse error
			cfg.Port, _ = strconv.Atoi(f.Value.String())
		case "no-browser":
			cfg.NoBrowser = f.Value.String() == "true"
		case "import-dir":
			cfg.ImportDir = f.Value.String()
		}
	})
}

// SaveOpenAIKey persists the OpenAI API key to the config file,
// preserving any other keys already stored there.
func (c *Config) SaveOpenAIKey(key string) error {
	if err := c.saveField("openai_api_key", key); err != nil {
		return err
	}
	c.OpenAIKey = key
	return nil
}

// SaveBrowserCmd persists the browser command to the config file.
func (c *Config) SaveBrowserCmd(cmd string) error {
	if err := c.saveField("browser_cmd", cmd); err != nil {
		return err
	}
	c.BrowserCmd = cmd
	return nil
}

func (c *Config) saveField(key, value string) error {
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	existing := make(map[string]any)
	data, err := os.ReadFile(c.configPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf(
				"existing config is invalid, cannot update: %w",
				err,
			)
		}
	}

	existing[key] = value
	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(c.configPath(), out, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
