package backend

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const defaultNatsURL = "nats://localhost:4224"

// Config holds the two required values for reaching the remote service plus
// the optional realtime endpoint override.
type Config struct {
	ServiceURL string // Postgres DSN of the hosted store
	ServiceKey string // public key, shared by the realtime channel and token auth
	NatsURL    string
}

func ConfigFromEnv() Config {
	cfg := Config{
		ServiceURL: os.Getenv("SIPSTREAM_SERVICE_URL"),
		ServiceKey: os.Getenv("SIPSTREAM_SERVICE_KEY"),
		NatsURL:    os.Getenv("NATS_URL"),
	}
	if cfg.NatsURL == "" {
		cfg.NatsURL = defaultNatsURL
	}
	return cfg
}

// Client is the single handle to the remote service: one connection pool for
// request/response and one realtime connection for row change notifications.
type Client struct {
	cfg  Config
	pool *pgxpool.Pool
	nc   *nats.Conn

	mu        sync.RWMutex
	connected bool
	lastErr   string
}

// Connect builds the client and runs the reachability probe once. A missing
// ServiceURL or ServiceKey, or a failed probe, yields a *ConnectionError.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ServiceURL == "" || cfg.ServiceKey == "" {
		return nil, &ConnectionError{Reason: "missing SIPSTREAM_SERVICE_URL or SIPSTREAM_SERVICE_KEY"}
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(pctx, cfg.ServiceURL)
	if err != nil {
		return nil, &ConnectionError{Reason: err.Error()}
	}

	c := &Client{cfg: cfg, pool: pool}

	// reachability probe, run once at startup
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		c.setStatus(false, err.Error())
		return nil, &ConnectionError{Reason: err.Error()}
	}

	opts := []nats.Option{
		nats.Name("sipstream client"),
		nats.Token(cfg.ServiceKey),
	}
	nc, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		pool.Close()
		c.setStatus(false, err.Error())
		return nil, &ConnectionError{Reason: err.Error()}
	}
	c.nc = nc

	c.setStatus(true, "")
	log.Infof("remote service connection established %s", cfg.NatsURL)
	return c, nil
}

func (c *Client) setStatus(connected bool, lastErr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
	c.lastErr = lastErr
}

// Connected reports the result of the startup probe. It is not re-polled.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Client) DB() *pgxpool.Pool {
	return c.pool
}

// Key returns the public service key, used to sign and verify session tokens.
func (c *Client) Key() string {
	return c.cfg.ServiceKey
}

func (c *Client) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
	if c.pool != nil {
		c.pool.Close()
	}
	c.setStatus(false, "closed")
}
