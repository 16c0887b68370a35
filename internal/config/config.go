package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	FailoverFile   string
	QuotaFile      string // throttle gate quota (limit/period)
	QuotaStateFile string // per-service reset document written by the recorder
	APIKeysFile    string
	LicensesFile   string

	DataDir string
	Offline bool

	FDAAPIURL     string
	FDAAPITimeout time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	CADFeedURL     string
	CADFeedTimeout time.Duration

	CacheBackend string // "in_memory" or "memcached"
	CacheTTL     time.Duration

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout time.Duration

	SMTPHost   string
	SMTPPort   int
	SMTPSender string
	SMTPUser   string
	SMTPPass   string

	// Default probe parameters used when a category is invoked through the
	// router, which passes no arguments to backend handlers.
	ProbeLocation string
	ProbeUNNA     string
	ProbeDrug1    string
	ProbeDrug2    string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Routing struct {
		FailoverFile string `yaml:"failover_file"`
		Probe        struct {
			Location string `yaml:"location"`
			UNNA     string `yaml:"unna"`
			Drug1    string `yaml:"drug1"`
			Drug2    string `yaml:"drug2"`
		} `yaml:"probe"`
	} `yaml:"routing"`

	Quota struct {
		File      string `yaml:"file"`
		StateFile string `yaml:"state_file"`
	} `yaml:"quota"`

	Datasets struct {
		Dir     string `yaml:"dir"`
		Offline bool   `yaml:"offline"`
	} `yaml:"datasets"`

	FDAAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"fda_api"`

	CADFeed struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"cad_feed"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryBaseDelay   string `yaml:"retry_base_delay"`
		RetryMaxDelay    string `yaml:"retry_max_delay"`
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Licenses struct {
		File string `yaml:"file"`
		SMTP struct {
			Host   string `yaml:"host"`
			Port   int    `yaml:"port"`
			Sender string `yaml:"sender"`
			User   string `yaml:"user"`
		} `yaml:"smtp"`
	} `yaml:"licenses"`

	Status struct {
		APIKeysFile string `yaml:"api_keys_file"`
	} `yaml:"status"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev).
// CAD_FEED_URL, CACHE_BACKEND, MEMCACHED_ADDRS, OFFLINE and SMTP_PASSWORD
// env vars override their file counterparts. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFile(filepath.Join(cwd, "config", env+".yaml"))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.FailoverFile = defaultString(fc.Routing.FailoverFile, "config/failover.json")
	cfg.QuotaFile = defaultString(fc.Quota.File, "config/quotas.json")
	cfg.QuotaStateFile = defaultString(fc.Quota.StateFile, "config/quota_state.json")
	cfg.APIKeysFile = defaultString(fc.Status.APIKeysFile, "config/api_keys.json")
	cfg.LicensesFile = defaultString(fc.Licenses.File, "config/licenses.json")

	cfg.DataDir = defaultString(fc.Datasets.Dir, "data")
	cfg.Offline = fc.Datasets.Offline
	if v := strings.TrimSpace(os.Getenv("OFFLINE")); v != "" {
		cfg.Offline = v == "1" || strings.EqualFold(v, "true")
	}

	cfg.FDAAPIURL = defaultString(fc.FDAAPI.URL, "https://api.fda.gov/drug/label.json")
	cfg.FDAAPITimeout = parseDuration(fc.FDAAPI.Timeout, 10*time.Second)

	cfg.CADFeedURL = strings.TrimSpace(os.Getenv("CAD_FEED_URL"))
	if cfg.CADFeedURL == "" {
		cfg.CADFeedURL = defaultString(fc.CADFeed.URL, "http://localhost:5000/incidents")
	}
	cfg.CADFeedTimeout = parseDuration(fc.CADFeed.Timeout, 10*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 5*time.Minute)
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	cfg.SMTPHost = defaultString(fc.Licenses.SMTP.Host, "localhost")
	cfg.SMTPPort = fc.Licenses.SMTP.Port
	if cfg.SMTPPort <= 0 {
		cfg.SMTPPort = 25
	}
	cfg.SMTPSender = defaultString(fc.Licenses.SMTP.Sender, "noreply@example.com")
	cfg.SMTPUser = fc.Licenses.SMTP.User
	cfg.SMTPPass = os.Getenv("SMTP_PASSWORD")

	cfg.ProbeLocation = defaultString(fc.Routing.Probe.Location, "downtown")
	cfg.ProbeUNNA = defaultString(fc.Routing.Probe.UNNA, "1203")
	cfg.ProbeDrug1 = defaultString(fc.Routing.Probe.Drug1, "ibuprofen")
	cfg.ProbeDrug2 = defaultString(fc.Routing.Probe.Drug2, "warfarin")

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultString(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return s
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. RequestTimeout must cover the
// slowest upstream call so handlers are not cancelled mid-fetch.
func validate(cfg *Config) error {
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	upstreamMax := cfg.FDAAPITimeout
	if cfg.CADFeedTimeout > upstreamMax {
		upstreamMax = cfg.CADFeedTimeout
	}
	if cfg.RequestTimeout <= upstreamMax {
		cfg.RequestTimeout = upstreamMax + time.Second
	}
	return nil
}
