package cohort

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

var (
	ErrNumRounds           = errors.New("num_rounds must be positive")
	ErrMinFitClients       = errors.New("min_fit_clients must be positive")
	ErrMinAvailableClients = errors.New("min_available_clients must be at least min_fit_clients")
	ErrMaxClientsPerRound  = errors.New("max_clients_per_round must be at least min_fit_clients")
	ErrRoundTimeout        = errors.New("round_timeout must be positive")
	ErrUnsupportedFormat   = errors.New("unsupported config file format")
)

// RunConfig controls one training run on the host.
type RunConfig struct {
	NumRounds           uint64        `json:"num_rounds"`
	MinFitClients       uint64        `json:"min_fit_clients"`
	MinAvailableClients uint64        `json:"min_available_clients"`
	MaxClientsPerRound  uint64        `json:"max_clients_per_round"`
	RoundTimeout        time.Duration `json:"round_timeout"`
	MaxRoundRetries     uint64        `json:"max_round_retries"`
	SelectionSeed       int64         `json:"selection_seed"`
	RetryBackoff        time.Duration `json:"retry_backoff"`
	Evaluate            bool          `json:"evaluate"`
	Fuse                bool          `json:"fuse"`
	// Params are passed verbatim to every client in fit and evaluate requests.
	Params map[string]string `json:"params,omitempty"`
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		NumRounds:           3,
		MinFitClients:       2,
		MinAvailableClients: 2,
		MaxClientsPerRound:  2,
		RoundTimeout:        5 * time.Minute,
		MaxRoundRetries:     2,
		RetryBackoff:        time.Second,
		Evaluate:            true,
		Fuse:                true,
	}
}

func (c RunConfig) Validate() error {
	var err error
	switch {
	case c.NumRounds == 0:
		err = ErrNumRounds
	case c.MinFitClients == 0:
		err = ErrMinFitClients
	case c.MinAvailableClients < c.MinFitClients:
		err = ErrMinAvailableClients
	case c.MaxClientsPerRound < c.MinFitClients:
		err = ErrMaxClientsPerRound
	case c.RoundTimeout <= 0:
		err = ErrRoundTimeout
	}
	if err != nil {
		return errors.Join(pkgerrors.ErrInvalidConfig, err)
	}

	return nil
}

type Config struct {
	Run     RunConfig
	Clients []ClientEntry
	Client  ClientConfig
}

// ClientEntry seeds the host's registry with a statically known client.
type ClientEntry struct {
	ID      string `toml:"id"      yaml:"id"`
	Name    string `toml:"name"    yaml:"name"`
	Address string `toml:"address" yaml:"address"`
}

// ClientConfig describes the local resources of one client process.
type ClientConfig struct {
	ID          string `toml:"id"           yaml:"id"`
	Name        string `toml:"name"         yaml:"name"`
	ModelRef    string `toml:"model_ref"    yaml:"model_ref"`
	RawDataPath string `toml:"raw_data"     yaml:"raw_data"`
	DatasetPath string `toml:"dataset"      yaml:"dataset"`
	Embeddings  string `toml:"embeddings"   yaml:"embeddings"`
	WorkDir     string `toml:"work_dir"     yaml:"work_dir"`
}

type runSection struct {
	NumRounds           *uint64 `toml:"num_rounds"            yaml:"num_rounds"`
	MinFitClients       *uint64 `toml:"min_fit_clients"       yaml:"min_fit_clients"`
	MinAvailableClients *uint64 `toml:"min_available_clients" yaml:"min_available_clients"`
	MaxClientsPerRound  *uint64 `toml:"max_clients_per_round" yaml:"max_clients_per_round"`
	RoundTimeout        string  `toml:"round_timeout"         yaml:"round_timeout"`
	MaxRoundRetries     *uint64 `toml:"max_round_retries"     yaml:"max_round_retries"`
	SelectionSeed       *int64  `toml:"selection_seed"        yaml:"selection_seed"`
	RetryBackoff        string  `toml:"retry_backoff"         yaml:"retry_backoff"`
	Evaluate            *bool   `toml:"evaluate"              yaml:"evaluate"`
	Fuse                *bool   `toml:"fuse"                  yaml:"fuse"`

	Params map[string]string `toml:"params" yaml:"params"`
}

type fileConfig struct {
	Run     runSection    `toml:"run"     yaml:"run"`
	Clients []ClientEntry `toml:"clients" yaml:"clients"`
	Client  ClientConfig  `toml:"client"  yaml:"client"`
}

// LoadConfig reads a TOML or YAML file, chosen by extension. Run options
// that are absent keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		tree, err := toml.Load(string(data))
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if err := tree.Unmarshal(&fc); err != nil {
			return nil, fmt.Errorf("error unmarshaling config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("error unmarshaling config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	run, err := fc.Run.apply(DefaultRunConfig())
	if err != nil {
		return nil, err
	}
	if err := run.Validate(); err != nil {
		return nil, err
	}

	return &Config{
		Run:     run,
		Clients: fc.Clients,
		Client:  fc.Client,
	}, nil
}

func (s runSection) apply(c RunConfig) (RunConfig, error) {
	setUint(&c.NumRounds, s.NumRounds)
	setUint(&c.MinFitClients, s.MinFitClients)
	setUint(&c.MinAvailableClients, s.MinAvailableClients)
	setUint(&c.MaxClientsPerRound, s.MaxClientsPerRound)
	setUint(&c.MaxRoundRetries, s.MaxRoundRetries)
	if s.SelectionSeed != nil {
		c.SelectionSeed = *s.SelectionSeed
	}
	if s.Evaluate != nil {
		c.Evaluate = *s.Evaluate
	}
	if s.Fuse != nil {
		c.Fuse = *s.Fuse
	}
	if len(s.Params) > 0 {
		c.Params = s.Params
	}
	if s.RoundTimeout != "" {
		d, err := time.ParseDuration(s.RoundTimeout)
		if err != nil {
			return c, errors.Join(pkgerrors.ErrInvalidConfig, fmt.Errorf("round_timeout: %w", err))
		}
		c.RoundTimeout = d
	}
	if s.RetryBackoff != "" {
		d, err := time.ParseDuration(s.RetryBackoff)
		if err != nil {
			return c, errors.Join(pkgerrors.ErrInvalidConfig, fmt.Errorf("retry_backoff: %w", err))
		}
		c.RetryBackoff = d
	}

	return c, nil
}

func setUint(dst, src *uint64) {
	if src != nil {
		*dst = *src
	}
}
