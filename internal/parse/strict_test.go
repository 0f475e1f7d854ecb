package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/emailprobe/internal/parse"
	"github.com/optimode/emailprobe/types"
)

func TestStrict(t *testing.T) {
	tests := []struct {
		name   string
		email  string
		wantOK bool
	}{
		{"valid simple", "user@example.com", true},
		{"valid with plus", "user+tag@example.com", true},
		{"valid with dots", "first.last@example.com", true},
		{"valid subdomain", "user@mail.example.co.uk", true},
		{"single label domain", "user@localhost", false},
		{"double dot local", "user..name@example.com", false},
		{"leading dot local", ".user@example.com", false},
		{"trailing dot local", "user.@example.com", false},
		{"consecutive dots domain", "user@exam..ple.com", false},
		{"numeric TLD", "user@example.123", false},
		{"label starts with hyphen", "user@-example.com", false},
		{"label ends with hyphen", "user@example-.com", false},
		{"valid IDN german", "user@münchen.de", true},
		{"valid IDN cyrillic", "user@почта.рф", true},
		{"valid Punycode", "user@xn--mnchen-3ya.de", true},
		{"valid EAI chinese local", "用户@example.com", true},
		{"quoted local with space", `"john doe"@example.com`, true},
		{"quoted local with escaped quote", `"john\"doe"@example.com`, true},
		{"quoted local with at sign", `"john@doe"@example.com`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := parse.Address(tt.email)
			require.NoError(t, err)
			err = parse.Strict(a)
			if tt.wantOK {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, parse.ErrFormat)
			}
		})
	}
}

func TestStrict_LocalTooLong(t *testing.T) {
	local := make([]byte, 65)
	for i := range local {
		local[i] = 'a'
	}
	a, err := parse.Address(string(local) + "@example.com")
	require.NoError(t, err)
	err = parse.Strict(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local part exceeds 64 characters")
}

func TestStrict_QuotedLocal(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantMsg  string
	}{
		{"ok", `"john doe"`, ""},
		{"empty quotes", `""`, "quoted local part is empty"},
		{"unescaped quote", `"jo"hn"`, "quoted local part contains unescaped quote"},
		{"trailing backslash", `"john\"`, "quoted local part ends with a backslash"},
		{"control character", "\"jo\x01hn\"", "local part contains control character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parse.Strict(types.Address{
				Addr:     tt.username + "@example.com",
				Username: tt.username,
				Domain:   "example.com",
			})
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestStrict_DotAtomLocal(t *testing.T) {
	tests := []struct {
		username string
		wantMsg  string
	}{
		{".user", "local part cannot start or end with a dot"},
		{"user.", "local part cannot start or end with a dot"},
		{"us..er", "local part cannot contain consecutive dots"},
		{"us,er", "local part contains invalid character: ,"},
		{"us\u0085er", "local part contains control character"},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			err := parse.Strict(types.Address{
				Addr:     tt.username + "@example.com",
				Username: tt.username,
				Domain:   "example.com",
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
