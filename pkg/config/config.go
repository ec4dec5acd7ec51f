package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samogod/dreamprep/pkg/concept"
	"github.com/samogod/dreamprep/pkg/images"
	"github.com/samogod/dreamprep/pkg/training"

	"gopkg.in/yaml.v3"
)

const FileName = "dreamprep.yaml"

var DebugLog func(string, ...interface{})

type Config struct {
	Data     Data     `yaml:"data"`
	Images   Images   `yaml:"images"`
	Training Training `yaml:"training"`
	Ledger   Ledger   `yaml:"ledger"`
}

type Data struct {
	BaseDir      string `yaml:"base_dir"`
	ConceptsFile string `yaml:"concepts_file"`
}

type Images struct {
	Min        int      `yaml:"min"`
	Max        int      `yaml:"max"`
	Extensions []string `yaml:"extensions"`
}

type Training struct {
	ModelName      string  `yaml:"model_name"`
	OutputDir      string  `yaml:"output_dir"`
	BaseSteps      int     `yaml:"base_steps"`
	Resolution     int     `yaml:"resolution"`
	TrainBatchSize int     `yaml:"train_batch_size"`
	LearningRate   float64 `yaml:"learning_rate"`
}

type Ledger struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func Default() *Config {
	return &Config{
		Data: Data{
			BaseDir:      concept.DefaultBaseDataDir,
			ConceptsFile: "/content/concepts_list.json",
		},
		Images: Images{
			Min:        images.DefaultMinImages,
			Max:        images.DefaultMaxImages,
			Extensions: append([]string(nil), images.DefaultExtensions...),
		},
		Training: Training{
			ModelName:      "runwayml/stable-diffusion-v1-5",
			OutputDir:      "/content/stable_diffusion_weights",
			BaseSteps:      training.DefaultBaseSteps,
			Resolution:     training.DefaultResolution,
			TrainBatchSize: training.DefaultTrainBatchSize,
			LearningRate:   training.DefaultLearningRate,
		},
		Ledger: Ledger{
			Enabled: false,
		},
	}
}

func (c *Config) ImagePolicy() images.Policy {
	return images.Policy{
		Min:        c.Images.Min,
		Max:        c.Images.Max,
		Extensions: c.Images.Extensions,
	}
}

// LedgerPath resolves the ledger database location, falling back to the
// user cache directory.
func (c *Config) LedgerPath() string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	return GetDefaultLedgerPath()
}

type Manager struct {
	config     *Config
	configPath string
}

func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// LoadConfig reads the configuration file over the defaults. A path given to
// NewManager must exist; without one the usual locations are searched and
// the defaults are kept when nothing is found.
func (m *Manager) LoadConfig() error {
	explicit := m.configPath != ""
	if !explicit {
		m.configPath = m.findConfigFile()
	}

	cfg := Default()

	if m.configPath == "" {
		if DebugLog != nil {
			DebugLog("no config file found, using defaults")
		}
		m.config = cfg
		return nil
	}

	if DebugLog != nil {
		DebugLog("loading config from %s", m.configPath)
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file not found at %s. Create one with 'dreamprep config init'", m.configPath)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := m.validateConfig(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	m.config = cfg
	return nil
}

func (m *Manager) GetConfig() *Config {
	return m.config
}

func (m *Manager) ConfigPath() string {
	return m.configPath
}

func (m *Manager) findConfigFile() string {
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}

	local := filepath.Join("config", FileName)
	if _, err := os.Stat(local); err == nil {
		return local
	}

	if path := GetDefaultConfigPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func (m *Manager) validateConfig(config *Config) error {
	if config.Images.Min < 0 {
		return fmt.Errorf("images.min must not be negative")
	}

	if config.Images.Max < config.Images.Min {
		return fmt.Errorf("images.max (%d) must not be lower than images.min (%d)", config.Images.Max, config.Images.Min)
	}

	if config.Training.BaseSteps < 0 {
		return fmt.Errorf("training.base_steps must not be negative")
	}

	if config.Training.Resolution <= 0 {
		return fmt.Errorf("training.resolution must be greater than 0")
	}

	if config.Training.TrainBatchSize <= 0 {
		return fmt.Errorf("training.train_batch_size must be greater than 0")
	}

	if config.Training.LearningRate <= 0 {
		return fmt.Errorf("training.learning_rate must be greater than 0")
	}

	return nil
}

// Save writes cfg as YAML, creating the parent directory when needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
