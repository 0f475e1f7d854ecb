package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/optimode/emailprobe"
)

type config struct {
	SourceAddr    string
	HeloName      string
	ProxyType     string
	ProxyAddr     string
	ProxyPort     string
	ProxyUsername string
	ProxyPassword string
	Nameserver    string
	Timeout       time.Duration
	MaxExchanges  int
	SortExchanges bool
	StrictSyntax  bool
	LogLevel      string
	Debug         bool
	Emails        []string
}

// loadConfig reads .env (if present), then the environment, then flags.
// Flags win over the environment.
func loadConfig(args []string, stderr io.Writer) (config, error) {
	// A missing .env file is not an error
	_ = godotenv.Load()

	cfg := config{
		SourceAddr:    getEnv("EMAILPROBE_SOURCE_ADDR", "user@example.com"),
		HeloName:      getEnv("EMAILPROBE_HELO", ""),
		ProxyType:     getEnv("EMAILPROBE_PROXY_TYPE", ""),
		ProxyAddr:     getEnv("EMAILPROBE_PROXY_ADDR", ""),
		ProxyPort:     getEnv("EMAILPROBE_PROXY_PORT", ""),
		ProxyUsername: getEnv("EMAILPROBE_PROXY_USERNAME", ""),
		ProxyPassword: getEnv("EMAILPROBE_PROXY_PASSWORD", ""),
		Nameserver:    getEnv("EMAILPROBE_NAMESERVER", ""),
		LogLevel:      getEnv("EMAILPROBE_LOG_LEVEL", "warning"),
		Timeout:       getEnvDuration("EMAILPROBE_TIMEOUT", 60*time.Second),
		MaxExchanges:  getEnvInt("EMAILPROBE_MAX_EXCHANGES", 0),
	}

	fs := flag.NewFlagSet("emailprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: emailprobe [flags] [email ...]\n\nWithout arguments the address is read from standard input.\n\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.SourceAddr, "from", cfg.SourceAddr, "address sent in MAIL FROM")
	fs.StringVar(&cfg.HeloName, "helo", cfg.HeloName, "name sent in HELO (default: domain of -from)")
	fs.StringVar(&cfg.ProxyType, "proxy-type", cfg.ProxyType, "proxy type: socks4, socks5 or http")
	fs.StringVar(&cfg.ProxyAddr, "proxy-addr", cfg.ProxyAddr, "proxy host")
	fs.StringVar(&cfg.ProxyPort, "proxy-port", cfg.ProxyPort, "proxy port")
	fs.StringVar(&cfg.ProxyUsername, "proxy-username", cfg.ProxyUsername, "proxy username")
	fs.StringVar(&cfg.ProxyPassword, "proxy-password", cfg.ProxyPassword, "proxy password")
	fs.StringVar(&cfg.Nameserver, "nameserver", cfg.Nameserver, "DNS server host:port for MX lookups")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout per address")
	fs.IntVar(&cfg.MaxExchanges, "max-exchanges", cfg.MaxExchanges, "probe at most this many exchanges (0 = all)")
	fs.BoolVar(&cfg.SortExchanges, "sort", false, "probe exchanges by MX preference")
	fs.BoolVar(&cfg.StrictSyntax, "strict", false, "apply RFC 5321 syntax rules")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.Debug, "debug", false, "shorthand for -log-level=debug")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	cfg.Emails = fs.Args()
	if cfg.Debug {
		cfg.LogLevel = logrus.DebugLevel.String()
	}
	return cfg, nil
}

func (c config) options(log logrus.FieldLogger) emailprobe.Options {
	return emailprobe.Options{
		SourceAddr: c.SourceAddr,
		HeloName:   c.HeloName,
		Proxy: emailprobe.ProxyOptions{
			Type:     c.ProxyType,
			Addr:     c.ProxyAddr,
			Port:     c.ProxyPort,
			Username: c.ProxyUsername,
			Password: c.ProxyPassword,
		},
		Nameserver:    c.Nameserver,
		MaxExchanges:  c.MaxExchanges,
		SortExchanges: c.SortExchanges,
		StrictSyntax:  c.StrictSyntax,
		Logger:        log,
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}
