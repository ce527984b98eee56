package helpers

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// ESOptions configures the audit index client.
type ESOptions struct {
	Addrs    []string
	Username string
	Password string
	// MaxRetries on 502/503/504 and connection errors; 0 keeps the client default (3).
	MaxRetries int
}

func esConfig(o ESOptions) elasticsearch.Config {
	return elasticsearch.Config{
		Addresses:     o.Addrs,
		Username:      o.Username,
		Password:      o.Password,
		MaxRetries:    o.MaxRetries,
		RetryOnStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	}
}

// NewESClient creates an Elasticsearch client; basic auth is sent only when a username is set.
func NewESClient(o ESOptions) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(esConfig(o))
}
