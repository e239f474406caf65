package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndFormatProxy(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		out   string
	}{
		{"10.0.0.1:3128", true, "http://10.0.0.1:3128"},
		{"https://proxy.local:443", true, "https://proxy.local:443"},
		{"socks5://127.0.0.1:1080", true, "socks5://127.0.0.1:1080"},
		{"ftp://proxy.local", false, "ftp://proxy.local"},
		{"http://", false, "http://"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidateProxy(tt.in), tt.in)
		assert.Equal(t, tt.out, FormatProxy(tt.in), tt.in)
	}
}

func TestProxyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://bot.local/data/state.json", nil)

	fn, err := ProxyFunc("10.0.0.1:3128")
	require.NoError(t, err)
	u, err := fn(req)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:3128", u.String())

	_, err = ProxyFunc("ftp://nope")
	assert.Error(t, err)

	fn, err = ProxyFunc("")
	require.NoError(t, err)
	assert.NotNil(t, fn)
}
