package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all settings for a run.
type Config struct {
	FTPHost         string
	FTPPort         int
	FTPUser         string
	FTPPassword     string
	FTPTimeout      time.Duration
	FTPDialAttempts int
	RemotePath      string

	WorkDir string

	LogLevel         string
	LogFormat        string
	LogFile          string
	LogBackups       int
	LogRotateWeekday time.Weekday

	DiskUsagePath   string
	DiskWarnPercent float64

	MergeCmd   string
	MergeArgs  []string
	ConvertCmd string

	// Notification sinks; each is disabled while its settings are empty.
	MailTo           string
	MailFrom         string
	MailCmd          string
	TelegramToken    string
	TelegramChatID   int64
	KafkaBrokers     []string
	KafkaReportTopic string

	PushgatewayURL  string
	HistoryDB       string
	ShutdownTimeout time.Duration
}

// fileConfig is the optional YAML configuration file. Every value is a
// default that the matching environment variable overrides.
type fileConfig struct {
	FTP struct {
		Host         string `yaml:"host"`
		Port         string `yaml:"port"`
		User         string `yaml:"user"`
		Password     string `yaml:"password"`
		Timeout      string `yaml:"timeout"`
		DialAttempts string `yaml:"dial_attempts"`
		RemotePath   string `yaml:"remote_path"`
	} `yaml:"ftp"`
	WorkDir string `yaml:"work_dir"`
	Log     struct {
		Level         string `yaml:"level"`
		Format        string `yaml:"format"`
		File          string `yaml:"file"`
		Backups       string `yaml:"backups"`
		RotateWeekday string `yaml:"rotate_weekday"`
	} `yaml:"log"`
	Disk struct {
		Path        string `yaml:"path"`
		WarnPercent string `yaml:"warn_percent"`
	} `yaml:"disk"`
	Tools struct {
		MergeCmd   string `yaml:"merge_cmd"`
		MergeArgs  string `yaml:"merge_args"`
		ConvertCmd string `yaml:"convert_cmd"`
	} `yaml:"tools"`
	Notify struct {
		MailTo         string `yaml:"mail_to"`
		MailFrom       string `yaml:"mail_from"`
		MailCmd        string `yaml:"mail_cmd"`
		TelegramToken  string `yaml:"telegram_token"`
		TelegramChatID string `yaml:"telegram_chat_id"`
	} `yaml:"notify"`
	Kafka struct {
		Brokers     string `yaml:"brokers"`
		ReportTopic string `yaml:"report_topic"`
	} `yaml:"kafka"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	HistoryDB      string `yaml:"history_db"`
}

func (f *fileConfig) defaults() map[string]string {
	return map[string]string{
		"FTP_HOST":           f.FTP.Host,
		"FTP_PORT":           f.FTP.Port,
		"FTP_USER":           f.FTP.User,
		"FTP_PASSWORD":       f.FTP.Password,
		"FTP_TIMEOUT":        f.FTP.Timeout,
		"FTP_DIAL_ATTEMPTS":  f.FTP.DialAttempts,
		"REMOTE_PATH":        f.FTP.RemotePath,
		"WORK_DIR":           f.WorkDir,
		"LOG_LEVEL":          f.Log.Level,
		"LOG_FORMAT":         f.Log.Format,
		"LOG_FILE":           f.Log.File,
		"LOG_BACKUPS":        f.Log.Backups,
		"LOG_ROTATE_WEEKDAY": f.Log.RotateWeekday,
		"DISK_USAGE_PATH":    f.Disk.Path,
		"DISK_WARN_PERCENT":  f.Disk.WarnPercent,
		"MERGE_CMD":          f.Tools.MergeCmd,
		"MERGE_ARGS":         f.Tools.MergeArgs,
		"CONVERT_CMD":        f.Tools.ConvertCmd,
		"MAIL_TO":            f.Notify.MailTo,
		"MAIL_FROM":          f.Notify.MailFrom,
		"MAIL_CMD":           f.Notify.MailCmd,
		"TELEGRAM_TOKEN":     f.Notify.TelegramToken,
		"TELEGRAM_CHAT_ID":   f.Notify.TelegramChatID,
		"KAFKA_BROKERS":      f.Kafka.Brokers,
		"KAFKA_REPORT_TOPIC": f.Kafka.ReportTopic,
		"PUSHGATEWAY_URL":    f.PushgatewayURL,
		"HISTORY_DB":         f.HistoryDB,
	}
}

// LoadEnvFile loads variables from a dotenv file without overriding the
// environment. A missing file is not an error.
func LoadEnvFile(name string) error {
	err := godotenv.Load(name)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", name, err)
	}
	return nil
}

// Load reads the optional YAML file at path (CONFIG_FILE when path is empty),
// then applies environment variables on top, falling back to built-in defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}

	var file fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	l := loader{layer: file.defaults()}

	cfg := &Config{
		FTPHost:          l.str("FTP_HOST", ""),
		FTPPort:          l.integer("FTP_PORT", "21"),
		FTPUser:          l.str("FTP_USER", "anonymous"),
		FTPPassword:      l.str("FTP_PASSWORD", ""),
		FTPTimeout:       l.duration("FTP_TIMEOUT", "30s"),
		FTPDialAttempts:  l.integer("FTP_DIAL_ATTEMPTS", "3"),
		RemotePath:       l.str("REMOTE_PATH", "/"),
		WorkDir:          l.str("WORK_DIR", "/var/lib/hours2days"),
		LogLevel:         strings.ToLower(l.str("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(l.str("LOG_FORMAT", "json")),
		LogFile:          l.str("LOG_FILE", ""),
		LogBackups:       l.integer("LOG_BACKUPS", "0"),
		LogRotateWeekday: l.weekday("LOG_ROTATE_WEEKDAY", "sunday"),
		DiskWarnPercent:  l.number("DISK_WARN_PERCENT", "80"),
		MergeCmd:         l.str("MERGE_CMD", "teqc"),
		MergeArgs:        strings.Fields(l.str("MERGE_ARGS", "-warn -phc")),
		ConvertCmd:       l.str("CONVERT_CMD", "rnx2crx"),
		MailTo:           l.str("MAIL_TO", ""),
		MailFrom:         l.str("MAIL_FROM", ""),
		MailCmd:          l.str("MAIL_CMD", "mail"),
		TelegramToken:    l.str("TELEGRAM_TOKEN", ""),
		KafkaReportTopic: l.str("KAFKA_REPORT_TOPIC", "hours2days-run-reports"),
		PushgatewayURL:   l.str("PUSHGATEWAY_URL", ""),
		HistoryDB:        l.str("HISTORY_DB", ""),
	}
	cfg.DiskUsagePath = l.str("DISK_USAGE_PATH", cfg.WorkDir)
	if chat := l.str("TELEGRAM_CHAT_ID", ""); chat != "" {
		id, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			l.errs = append(l.errs, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q", chat))
		}
		cfg.TelegramChatID = id
	}
	if brokers := l.str("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}
	if err := errors.Join(l.errs...); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	cfg.ShutdownTimeout = shutdownTimeout

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.FTPHost == "" {
		return errors.New("FTP_HOST is required")
	}
	if c.FTPPort < 1 || c.FTPPort > 65535 {
		return fmt.Errorf("FTP_PORT %d out of range", c.FTPPort)
	}
	if c.FTPTimeout <= 0 {
		return errors.New("FTP_TIMEOUT must be positive")
	}
	if c.FTPDialAttempts < 1 {
		return errors.New("FTP_DIAL_ATTEMPTS must be at least 1")
	}
	if c.WorkDir == "" {
		return errors.New("WORK_DIR is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	if c.LogBackups < 0 {
		return errors.New("LOG_BACKUPS must not be negative")
	}
	if c.DiskWarnPercent <= 0 || c.DiskWarnPercent > 100 {
		return fmt.Errorf("DISK_WARN_PERCENT %.1f must be in (0, 100]", c.DiskWarnPercent)
	}
	if c.MergeCmd == "" {
		return errors.New("MERGE_CMD is required")
	}
	if c.ConvertCmd == "" {
		return errors.New("CONVERT_CMD is required")
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return errors.New("TELEGRAM_TOKEN is set but TELEGRAM_CHAT_ID is not")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaReportTopic == "" {
		return errors.New("KAFKA_BROKERS is set but KAFKA_REPORT_TOPIC is empty")
	}
	return nil
}

// loader resolves a key from the environment, then the config file, then the
// built-in default, and collects parse errors.
type loader struct {
	layer map[string]string
	errs  []error
}

func (l *loader) str(key, def string) string {
	if v := l.layer[key]; v != "" {
		def = v
	}
	return strings.TrimSpace(sharedcfg.EnvOrDefault(key, def))
}

func (l *loader) integer(key, def string) int {
	s := l.str(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s %q", key, s))
	}
	return n
}

func (l *loader) number(key, def string) float64 {
	s := l.str(key, def)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s %q", key, s))
	}
	return f
}

func (l *loader) duration(key, def string) time.Duration {
	s := l.str(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid %s %q", key, s))
	}
	return d
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

func (l *loader) weekday(key, def string) time.Weekday {
	s := strings.ToLower(l.str(key, def))
	d, ok := weekdays[s]
	if !ok {
		l.errs = append(l.errs, fmt.Errorf("invalid %s %q", key, s))
	}
	return d
}
