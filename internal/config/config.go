package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/wattlog/internal/collector"
	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/sensor"
	"codeberg.org/mutker/wattlog/internal/server"
	"codeberg.org/mutker/wattlog/internal/telemetry"
	"codeberg.org/mutker/wattlog/internal/uplink"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel  = LogLevelInfo
	DefaultEnvPrefix = "ENERGYD"
	configName       = "energyd"
	systemConfigDir  = "/etc/energyd"
	defaultStorePath = "energy.db"
)

type SensorOptions struct {
	Min     float64
	Max     float64
	Ceiling int
}

type StoreOptions struct {
	Path        string
	BusyTimeout time.Duration
	MaxEntries  int
}

type UplinkOptions struct {
	Transport  string
	URL        string
	BatchSize  int
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
}

type MQTTOptions struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      int
}

type CollectorOptions struct {
	Addr string
	Keep int
}

type Config struct {
	Devices   int
	Interval  time.Duration
	LogLevel  LogLevel
	PIDDir    string
	Sensor    SensorOptions
	Store     StoreOptions
	Uplink    UplinkOptions
	MQTT      MQTTOptions
	Collector CollectorOptions

	// ConfigFile is the file that was read, empty if none.
	ConfigFile string
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"devices":     "devices",
	"interval":    "interval",
	"log-level":   "log_level",
	"pid-dir":     "pid_dir",
	"db":          "store.path",
	"max-entries": "store.max_entries",
	"transport":   "uplink.transport",
	"url":         "uplink.url",
	"batch-size":  "uplink.batch_size",
	"max-retries": "uplink.max_retries",
	"backoff":     "uplink.backoff",
	"broker":      "mqtt.broker",
	"topic":       "mqtt.topic",
	"addr":        "collector.addr",
	"keep":        "collector.keep",
}

func setDefaults(v *viper.Viper) {
	uc := uplink.DefaultConfig()
	lc := collector.DefaultConfig()

	v.SetDefault("devices", lc.Devices)
	v.SetDefault("interval", lc.Interval.String())
	v.SetDefault("log_level", string(DefaultLogLevel))
	v.SetDefault("pid_dir", "")
	v.SetDefault("sensor.min", sensor.DefaultMin)
	v.SetDefault("sensor.max", sensor.DefaultMax)
	v.SetDefault("sensor.ceiling", sensor.DefaultCeiling)
	v.SetDefault("store.path", defaultStorePath)
	v.SetDefault("store.busy_timeout", telemetry.DefaultConfig().BusyTimeout.String())
	v.SetDefault("store.max_entries", lc.MaxEntries)
	v.SetDefault("uplink.transport", uc.Transport)
	v.SetDefault("uplink.url", uc.URL)
	v.SetDefault("uplink.batch_size", uc.BatchSize)
	v.SetDefault("uplink.max_retries", uc.MaxRetries)
	v.SetDefault("uplink.backoff", uc.Backoff.String())
	v.SetDefault("uplink.timeout", uc.Timeout.String())
	v.SetDefault("mqtt.broker", uc.MQTT.Broker)
	v.SetDefault("mqtt.topic", uc.MQTT.Topic)
	v.SetDefault("mqtt.client_id", uc.MQTT.ClientID)
	v.SetDefault("mqtt.qos", int(uc.MQTT.QoS))
	v.SetDefault("collector.addr", server.DefaultAddr)
	v.SetDefault("collector.keep", server.DefaultKeep)
}

func newFlagSet(name string) *pflag.FlagSet {
	uc := uplink.DefaultConfig()
	lc := collector.DefaultConfig()

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path to the configuration file")
	fs.Int("devices", lc.Devices, "Number of simulated appliances")
	fs.Duration("interval", lc.Interval, "Time between collection cycles")
	fs.String("log-level", string(DefaultLogLevel), "Log level (debug, info, warn, error)")
	fs.String("pid-dir", "", "Directory of the PID file")
	fs.String("db", defaultStorePath, "Path to the SQLite store")
	fs.Int("max-entries", lc.MaxEntries, "Readings kept in the store")
	fs.String("transport", uc.Transport, "Uplink transport (http, mqtt)")
	fs.String("url", uc.URL, "Collector upload URL")
	fs.Int("batch-size", uc.BatchSize, "Readings per upload")
	fs.Int("max-retries", uc.MaxRetries, "Delivery attempts per batch")
	fs.Duration("backoff", uc.Backoff, "Wait between delivery attempts")
	fs.String("broker", uc.MQTT.Broker, "MQTT broker URL")
	fs.String("topic", uc.MQTT.Topic, "MQTT topic")
	fs.String("addr", server.DefaultAddr, "Collector listen address")
	fs.Int("keep", server.DefaultKeep, "Entries retained by the collector")

	return fs
}

// Load reads configuration from defaults, the TOML file, the environment and
// args, later sources winning. args excludes the program name.
func Load(args []string, opts ...Option) (*Config, *pflag.FlagSet, error) {
	errFactory := errors.New()

	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	fs := newFlagSet(configName)
	if o.extraFlags != nil {
		o.extraFlags(fs)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, fs, err
		}
		return nil, fs, errFactory.Wrap(ErrParseFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fs, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	path := o.configPath
	if flagPath, _ := fs.GetString("config"); flagPath != "" {
		path = flagPath
	}
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(systemConfigDir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fs, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, fs, err
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, fs, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return cfg, fs, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Devices:  v.GetInt("devices"),
		LogLevel: LogLevel(strings.ToLower(v.GetString("log_level"))),
		PIDDir:   v.GetString("pid_dir"),
		Sensor: SensorOptions{
			Min:     v.GetFloat64("sensor.min"),
			Max:     v.GetFloat64("sensor.max"),
			Ceiling: v.GetInt("sensor.ceiling"),
		},
		Store: StoreOptions{
			Path:       v.GetString("store.path"),
			MaxEntries: v.GetInt("store.max_entries"),
		},
		Uplink: UplinkOptions{
			Transport:  strings.ToLower(v.GetString("uplink.transport")),
			URL:        v.GetString("uplink.url"),
			BatchSize:  v.GetInt("uplink.batch_size"),
			MaxRetries: v.GetInt("uplink.max_retries"),
		},
		MQTT: MQTTOptions{
			Broker:   v.GetString("mqtt.broker"),
			Topic:    v.GetString("mqtt.topic"),
			ClientID: v.GetString("mqtt.client_id"),
			QoS:      v.GetInt("mqtt.qos"),
		},
		Collector: CollectorOptions{
			Addr: v.GetString("collector.addr"),
			Keep: v.GetInt("collector.keep"),
		},
	}

	durations := map[string]*time.Duration{
		"interval":           &cfg.Interval,
		"store.busy_timeout": &cfg.Store.BusyTimeout,
		"uplink.backoff":     &cfg.Uplink.Backoff,
		"uplink.timeout":     &cfg.Uplink.Timeout,
	}
	for key, dst := range durations {
		d, err := duration(v.Get(key))
		if err != nil {
			return nil, errors.New().Wrap(ErrInvalidValue, err).WithData(key)
		}
		*dst = d
	}

	return cfg, nil
}

// duration accepts Go duration strings and bare numbers, read as seconds.
func duration(raw any) (time.Duration, error) {
	switch val := raw.(type) {
	case time.Duration:
		return val, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case int64:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(val)
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		return time.ParseDuration(s)
	default:
		return 0, errors.New().WithData(ErrInvalidValue, raw)
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Devices < 1:
		return invalid("devices", "must be at least 1")
	case c.Interval <= 0:
		return errors.New().WithData(errors.ErrInvalidInterval, c.Interval.String())
	case !c.LogLevel.IsValid():
		return errors.New().WithData(errors.ErrInvalidLogLevel, c.LogLevel.String())
	case c.Sensor.Min >= c.Sensor.Max:
		return invalid("sensor", "min must be below max")
	case c.Sensor.Ceiling <= 0:
		return invalid("sensor.ceiling", "must be positive")
	case c.Store.Path == "":
		return invalid("store.path", "must not be empty")
	case c.Store.BusyTimeout < 0:
		return invalid("store.busy_timeout", "must not be negative")
	case c.Store.MaxEntries < c.Uplink.BatchSize:
		return invalid("store.max_entries", "must not be below uplink.batch_size")
	case c.MQTT.QoS < 0 || c.MQTT.QoS > 2:
		return invalid("mqtt.qos", "must be 0, 1 or 2")
	case c.Collector.Keep < 1:
		return invalid("collector.keep", "must be at least 1")
	}

	return c.UplinkConfig().Validate()
}

func (c *Config) Thresholds() sensor.Thresholds {
	return sensor.Thresholds{Min: c.Sensor.Min, Max: c.Sensor.Max}
}

func (c *Config) StoreConfig(readOnly bool) telemetry.Config {
	return telemetry.Config{
		DBPath:      c.Store.Path,
		BusyTimeout: c.Store.BusyTimeout,
		ReadOnly:    readOnly,
	}
}

func (c *Config) UplinkConfig() uplink.Config {
	return uplink.Config{
		Transport:  c.Uplink.Transport,
		URL:        c.Uplink.URL,
		BatchSize:  c.Uplink.BatchSize,
		MaxRetries: c.Uplink.MaxRetries,
		Backoff:    c.Uplink.Backoff,
		Timeout:    c.Uplink.Timeout,
		MQTT: uplink.MQTTConfig{
			Broker:   c.MQTT.Broker,
			Topic:    c.MQTT.Topic,
			ClientID: c.MQTT.ClientID,
			QoS:      byte(c.MQTT.QoS),
		},
	}
}

func (c *Config) LoopConfig() collector.Config {
	return collector.Config{
		Devices:    c.Devices,
		Interval:   c.Interval,
		BatchSize:  c.Uplink.BatchSize,
		MaxEntries: c.Store.MaxEntries,
	}
}

func (c *Config) ServerConfig() server.Config {
	return server.Config{Addr: c.Collector.Addr, Keep: c.Collector.Keep}
}
