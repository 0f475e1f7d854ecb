package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PromptsForEmail(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, strings.NewReader("not_an_email\n"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	require.True(t, strings.HasPrefix(out, "Enter email to verify: "))

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(out, "Enter email to verify: ")), &rec))
	assert.Equal(t, "not_an_email", rec["address"])
	assert.Equal(t, false, rec["valid_format"])
}

func TestRun_Arguments(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"NO_MAIL <>", "plain"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	dec := json.NewDecoder(&stdout)
	for _, want := range []string{"NO_MAIL <>", "plain"} {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		assert.Equal(t, want, rec["address"])
	}
}

func TestRun_UnknownProxy(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-proxy-type", "socks6", "-proxy-addr", "127.0.0.1"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "socks4, socks5 or http")
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"-h"}, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: emailprobe")
}

func TestLoadConfig_EnvAndFlags(t *testing.T) {
	t.Setenv("EMAILPROBE_SOURCE_ADDR", "env@example.org")
	t.Setenv("EMAILPROBE_PROXY_TYPE", "socks5")
	t.Setenv("EMAILPROBE_PROXY_PORT", "1080")
	t.Setenv("EMAILPROBE_TIMEOUT", "15s")
	t.Setenv("EMAILPROBE_MAX_EXCHANGES", "2")

	cfg, err := loadConfig([]string{"-proxy-port", "9050", "-debug", "a@example.com"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "env@example.org", cfg.SourceAddr)
	assert.Equal(t, "socks5", cfg.ProxyType)
	assert.Equal(t, "9050", cfg.ProxyPort)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxExchanges)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"a@example.com"}, cfg.Emails)

	opts := cfg.options(nil)
	assert.Equal(t, "socks5", opts.Proxy.Type)
	assert.Equal(t, "9050", opts.Proxy.Port)
}
