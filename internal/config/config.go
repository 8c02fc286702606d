package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the minimal settings required to boot the RCA service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Rules      RulesConfig      `yaml:"rules"`
	Cache      CacheConfig      `yaml:"cache"`
	Broker     BrokerConfig     `yaml:"broker"`
	Topology   TopologyConfig   `yaml:"topology"`
	Timeseries TimeseriesConfig `yaml:"timeseries"`
	Infer      InferConfig      `yaml:"infer"`
}

// BrokerConfig configures the abnormal-KPI, abnormal-metric,
// observation-metadata and cause-result topics/groups.
type BrokerConfig struct {
	KPITopic      string        `yaml:"kpiTopic"`
	KPIGroup      string        `yaml:"kpiGroup"`
	MetricTopic   string        `yaml:"metricTopic"`
	MetricGroup   string        `yaml:"metricGroup"`
	MetadataTopic string        `yaml:"metadataTopic"`
	MetadataGroup string        `yaml:"metadataGroup"`
	CauseTopic    string        `yaml:"causeTopic"`
	PollTimeout   time.Duration `yaml:"pollTimeout"`
}

// TopologyConfig configures the FalkorDB-backed topology snapshot
// client (C4) plus the graph-traversal parameters the causal-graph
// builder uses when pulling a host's local subgraph.
type TopologyConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Password        string        `yaml:"password"`
	GraphName       string        `yaml:"graphName"`
	DialTimeout     time.Duration `yaml:"dialTimeout"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	PoolSize        int           `yaml:"poolSize"`
	EntityCacheSize int           `yaml:"entityCacheSize"`
	Depth           int           `yaml:"depth"`
	ToleratedBias   float64       `yaml:"toleratedBias"`
}

// TimeseriesConfig configures the HTTP-backed time-series sampling
// client (C5) and the sampling grid used when scoring correlations.
type TimeseriesConfig struct {
	BaseURL        string        `yaml:"baseURL"`
	RangePath      string        `yaml:"rangePath"`
	Timeout        time.Duration `yaml:"timeout"`
	Step           float64       `yaml:"step"`
	SampleDuration float64       `yaml:"sampleDuration"`
}

// InferConfig configures the aggregator's event-window durations, the
// ranking policy, and the rule/keyword YAML packs the inference loop
// loads at startup.
type InferConfig struct {
	ValidSec          float64       `yaml:"validSec"`
	FutureSec         float64       `yaml:"futureSec"`
	AgingSec          float64       `yaml:"agingSec"`
	CorrThreshold     float64       `yaml:"corrThreshold"`
	Policy            string        `yaml:"policy"`
	RootTopK          int           `yaml:"rootTopK"`
	NoKPIPollInterval time.Duration `yaml:"noKpiPollInterval"`
	KeywordPath       string        `yaml:"keywordPath"`
	ObserveMetaPath   string        `yaml:"observeMetaPath"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig controls rule-pack loading for the recommender.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls Valkey-backed caching of expensive lookups; its
// only consumer is timeseries.CachingClient, memoizing repeated Sample
// calls within one inference cycle's correlation scoring pass.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Addr          string        `yaml:"addr"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	DialTimeout   time.Duration `yaml:"dialTimeout"`
	ReadTimeout   time.Duration `yaml:"readTimeout"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
	MaxRetries    int           `yaml:"maxRetries"`
	TLS           bool          `yaml:"tls"`
	TimeseriesTTL time.Duration `yaml:"timeseriesTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_RCA_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{Path: "configs/rules/default.yaml"},
		Cache: CacheConfig{
			Enabled:       false,
			TimeseriesTTL: 30 * time.Second,
			DialTimeout:   2 * time.Second,
			ReadTimeout:   500 * time.Millisecond,
			WriteTimeout:  500 * time.Millisecond,
			MaxRetries:    2,
		},
		Broker: BrokerConfig{
			KPITopic:      "abnormal-kpi",
			KPIGroup:      "mirador-rca-kpi",
			MetricTopic:   "abnormal-metric",
			MetricGroup:   "mirador-rca-metric",
			MetadataTopic: "observe-metadata",
			MetadataGroup: "mirador-rca-metadata",
			CauseTopic:    "cause-result",
			PollTimeout:   time.Second,
		},
		Topology: TopologyConfig{
			Host:            "localhost",
			Port:            6379,
			GraphName:       "topology",
			DialTimeout:     2 * time.Second,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			PoolSize:        10,
			EntityCacheSize: 4096,
			Depth:           3,
			ToleratedBias:   30,
		},
		Timeseries: TimeseriesConfig{
			RangePath:      "/api/v1/rca/metrics/range",
			Timeout:        5 * time.Second,
			Step:           15,
			SampleDuration: 600,
		},
		Infer: InferConfig{
			ValidSec:          60,
			FutureSec:         60,
			AgingSec:          300,
			CorrThreshold:     0.1,
			Policy:            "dfs",
			RootTopK:          5,
			NoKPIPollInterval: 30 * time.Second,
			KeywordPath:       "configs/keywords/default.yaml",
			ObserveMetaPath:   "configs/observemeta/default.yaml",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_RCA_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MIRADOR_RCA_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_RCA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_RCA_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_RCA_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("MIRADOR_RCA_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("MIRADOR_RCA_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("MIRADOR_RCA_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("MIRADOR_RCA_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("MIRADOR_RCA_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("MIRADOR_RCA_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("MIRADOR_RCA_CACHE_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DialTimeout = d
		}
	}
	if v := os.Getenv("MIRADOR_RCA_CACHE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ReadTimeout = d
		}
	}
	if v := os.Getenv("MIRADOR_RCA_CACHE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.WriteTimeout = d
		}
	}
	if v := os.Getenv("MIRADOR_RCA_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("MIRADOR_RCA_CACHE_TIMESERIES_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TimeseriesTTL = d
		}
	}

	applyBrokerEnvOverrides(cfg)
	applyTopologyEnvOverrides(cfg)
	applyTimeseriesEnvOverrides(cfg)
	applyInferEnvOverrides(cfg)
}

func applyBrokerEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_RCA_BROKER_KPI_TOPIC"); v != "" {
		cfg.Broker.KPITopic = v
	}
	if v := os.Getenv("MIRADOR_RCA_BROKER_KPI_GROUP"); v != "" {
		cfg.Broker.KPIGroup = v
	}
	if v := os.Getenv("MIRADOR_RCA_BROKER_METRIC_TOPIC"); v != "" {
		cfg.Broker.MetricTopic = v
	}
	if v := os.Getenv("MIRADOR_RCA_BROKER_METRIC_GROUP"); v != "" {
		cfg.Broker.MetricGroup = v
	}
	if v := os.Getenv("MIRADOR_RCA_BROKER_METADATA_TOPIC"); v != "" {
		cfg.Broker.MetadataTopic = v
	}
	if v := os.Getenv("MIRADOR_RCA_BROKER_METADATA_GROUP"); v != "" {
		cfg.Broker.MetadataGroup = v
	}
	if v := os.Getenv("MIRADOR_RCA_BROKER_CAUSE_TOPIC"); v != "" {
		cfg.Broker.CauseTopic = v
	}
	if v := os.Getenv("MIRADOR_RCA_BROKER_POLL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Broker.PollTimeout = d
		}
	}
}

func applyTopologyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_RCA_TOPOLOGY_HOST"); v != "" {
		cfg.Topology.Host = v
	}
	if v := os.Getenv("MIRADOR_RCA_TOPOLOGY_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Topology.Port = p
		}
	}
	if v := os.Getenv("MIRADOR_RCA_TOPOLOGY_PASSWORD"); v != "" {
		cfg.Topology.Password = v
	}
	if v := os.Getenv("MIRADOR_RCA_TOPOLOGY_GRAPH_NAME"); v != "" {
		cfg.Topology.GraphName = v
	}
	if v := os.Getenv("MIRADOR_RCA_TOPOLOGY_DEPTH"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			cfg.Topology.Depth = d
		}
	}
	if v := os.Getenv("MIRADOR_RCA_TOPOLOGY_TOLERATED_BIAS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Topology.ToleratedBias = f
		}
	}
}

func applyTimeseriesEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_RCA_TIMESERIES_BASE_URL"); v != "" {
		cfg.Timeseries.BaseURL = v
	}
	if v := os.Getenv("MIRADOR_RCA_TIMESERIES_RANGE_PATH"); v != "" {
		cfg.Timeseries.RangePath = v
	}
	if v := os.Getenv("MIRADOR_RCA_TIMESERIES_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeseries.Timeout = d
		}
	}
	if v := os.Getenv("MIRADOR_RCA_TIMESERIES_STEP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Timeseries.Step = f
		}
	}
	if v := os.Getenv("MIRADOR_RCA_TIMESERIES_SAMPLE_DURATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Timeseries.SampleDuration = f
		}
	}
}

func applyInferEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_RCA_INFER_POLICY"); v != "" {
		cfg.Infer.Policy = v
	}
	if v := os.Getenv("MIRADOR_RCA_INFER_ROOT_TOPK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Infer.RootTopK = n
		}
	}
	if v := os.Getenv("MIRADOR_RCA_INFER_CORR_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Infer.CorrThreshold = f
		}
	}
	if v := os.Getenv("MIRADOR_RCA_INFER_NO_KPI_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Infer.NoKPIPollInterval = d
		}
	}
	if v := os.Getenv("MIRADOR_RCA_INFER_KEYWORD_PATH"); v != "" {
		cfg.Infer.KeywordPath = v
	}
	if v := os.Getenv("MIRADOR_RCA_INFER_OBSERVE_META_PATH"); v != "" {
		cfg.Infer.ObserveMetaPath = v
	}
}
