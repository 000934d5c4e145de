package compute

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Config holds the tunables of a Context.
type Config struct {
	// EnablePrimitives turns on the accelerated primitive library when it is available.
	EnablePrimitives bool `json:"enable_primitives"`
	// DisableGPU keeps the Context from opening a GPU device.
	DisableGPU bool `json:"disable_gpu"`
	// Workers bounds the goroutines used by parallel CPU kernels (0 = NumCPU).
	Workers int `json:"workers"`
	// MinPlanesPerWorker is the smallest number of planes handed to one goroutine.
	MinPlanesPerWorker int `json:"min_planes_per_worker"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		EnablePrimitives:   true,
		DisableGPU:         false,
		Workers:            0,
		MinPlanesPerWorker: 4,
	}
}

// LoadConfig reads a JSON configuration file. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %q", path)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %q", path)
	}
	if cfg.Workers < 0 || cfg.MinPlanesPerWorker < 0 {
		return cfg, errors.Errorf("config %q: workers and min_planes_per_worker must be non-negative", path)
	}
	return cfg, nil
}
