package jobs

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL    = "https://jsearch.p.rapidapi.com"
	apiHost   = "jsearch.p.rapidapi.com"
	userAgent = "spigell/smartintern"

	defaultTimeout    = 30 * time.Second
	defaultNumPages   = 1
	defaultDatePosted = "all"
)

// Config holds job source settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Host       string
	NumPages   int
	DatePosted string
	Timeout    time.Duration
}

// Client searches postings through the JSearch API.
type Client struct {
	token      string
	host       string
	numPages   int
	datePosted string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New creates a Client with defaults applied to the unset fields of cfg.
func New(logger *zap.Logger, cfg Config) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		token:      strings.TrimSpace(cfg.APIKey),
		host:       cfg.Host,
		numPages:   cfg.NumPages,
		datePosted: cfg.DatePosted,
		APIURL:     strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}

	if c.APIURL == "" {
		c.APIURL = apiURL
	}
	if c.host == "" {
		c.host = apiHost
	}
	if c.numPages <= 0 {
		c.numPages = defaultNumPages
	}
	if c.datePosted == "" {
		c.datePosted = defaultDatePosted
	}
	if c.HTTPClient.Timeout <= 0 {
		c.HTTPClient.Timeout = defaultTimeout
	}

	return c
}
