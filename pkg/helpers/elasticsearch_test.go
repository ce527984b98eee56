package helpers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewESClient(t *testing.T) {
	o := ESOptions{Addrs: []string{"http://es1:9200", "http://es2:9200"}, Username: "elastic", Password: "pw", MaxRetries: 2}

	cfg := esConfig(o)
	assert.Equal(t, o.Addrs, cfg.Addresses)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Contains(t, cfg.RetryOnStatus, http.StatusServiceUnavailable)
	assert.NotNil(t, cfg.Transport)

	client, err := NewESClient(o)
	require.NoError(t, err)
	assert.NotNil(t, client)
}
