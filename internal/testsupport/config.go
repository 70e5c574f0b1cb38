package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dbsyncctl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose log file lives in a per-test temp
// directory. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.API.BaseURL = "http://127.0.0.1:5000"
	cfgVal.API.RequestTimeoutSeconds = 5
	cfgVal.Console.StatusPollIntervalSeconds = 1
	cfgVal.Console.ReconnectDelayMillis = 500
	cfgVal.Logging.File = filepath.Join(base, "logs", "dbsyncctl.log")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIURL points the test config at a fake daemon.
func WithAPIURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = url
	}
}

// WithRecentLines overrides the startup log tail size.
func WithRecentLines(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Console.RecentLines = n
	}
}

// WithWizardDefaults overrides the wizard's Mergin URL and daemon sleep time.
func WithWizardDefaults(merginURL string, sleepTime int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Wizard.DefaultMerginURL = merginURL
		b.cfg.Wizard.DaemonSleepTime = sleepTime
	}
}

// WriteConfig encodes cfg as TOML at path and returns path.
func WriteConfig(t testing.TB, path string, cfg *config.Config) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
