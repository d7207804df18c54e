// Package dagsdk is the root entry point: Client composes the Transport,
// Network Read API, Batch Engine, Simulator, and Event Stream components
// into one constructed value.
package dagsdk

import (
	"context"
	"fmt"

	"github.com/constellation-network/sdk-go/address"
	"github.com/constellation-network/sdk-go/batch"
	"github.com/constellation-network/sdk-go/network"
	"github.com/constellation-network/sdk-go/pkg/config"
	"github.com/constellation-network/sdk-go/pkg/log"
	"github.com/constellation-network/sdk-go/simulate"
	"github.com/constellation-network/sdk-go/stream"
	"github.com/constellation-network/sdk-go/transport"
	"github.com/constellation-network/sdk-go/txn"
)

// Client is the SDK's one entry point. There is no package-level
// singleton; every caller builds its own via New.
type Client struct {
	deployment config.Deployment
	cfg        config.ClientConfig
	logger     log.Logger

	transport transport.Transport
	net       network.API
	batch     *batch.Engine
	simulator *simulate.Simulator
}

// Option configures a Client at construction time.
type Option func(*clientOptions)

type clientOptions struct {
	cfg       config.ClientConfig
	logger    log.Logger
	transport transport.Transport
}

// WithConfig overrides config.Default().
func WithConfig(cfg config.ClientConfig) Option {
	return func(o *clientOptions) { o.cfg = cfg }
}

// WithLogger injects a logger shared by the Client, its default
// Transport, and any Stream it opens. The Batch Engine does not log.
func WithLogger(l log.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithTransport substitutes the default HTTPTransport, primarily for
// tests.
func WithTransport(t transport.Transport) Option {
	return func(o *clientOptions) { o.transport = t }
}

// New constructs a Client targeting deployment.
func New(deployment config.Deployment, opts ...Option) *Client {
	o := &clientOptions{cfg: config.Default(), logger: log.Noop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.transport == nil {
		o.transport = transport.New(o.cfg, o.logger)
	}

	net := network.New(o.transport, deployment)
	return &Client{
		deployment: deployment,
		cfg:        o.cfg,
		logger:     o.logger,
		transport:  o.transport,
		net:        net,
		batch:      batch.New(net, batch.WithConcurrency(o.cfg.BatchConcurrency)),
		simulator:  simulate.New(),
	}
}

// Network returns the Network Read API bound to this Client's
// deployment and transport.
func (c *Client) Network() network.API { return c.net }

// Batch returns the Batch Engine bound to this Client's Network API and
// configured concurrency width.
func (c *Client) Batch() *batch.Engine { return c.batch }

// Simulator returns the Simulator used for pre-flight checks.
func (c *Client) Simulator() *simulate.Simulator { return c.simulator }

// Deployment reports which Network deployment this Client targets.
func (c *Client) Deployment() config.Deployment { return c.deployment }

// SimulateOptions builds simulate.Options wired to this Client's Network
// API and deployment name, for callers that want online checks without
// constructing the Options struct by hand.
func (c *Client) SimulateOptions() simulate.Options {
	return simulate.Options{Deployment: c.deployment.Name, Net: c.net}
}

// SubmitTransaction checks env's structure (non-empty proofs, one proof
// whose derived address matches Value.Source) before handing it to the
// Network API, so a malformed envelope never reaches the wire.
func (c *Client) SubmitTransaction(ctx context.Context, env address.Envelope) (network.SubmitResult, error) {
	if err := txn.ValidateSigned(env); err != nil {
		return network.SubmitResult{}, err
	}
	return c.net.SubmitTransaction(ctx, env)
}

// OpenStream opens an Event Stream against wsURL, sharing this Client's
// Network API (for the polling fallback) and logger.
func (c *Client) OpenStream(wsURL string) *stream.Stream {
	return stream.New(wsURL, c.net,
		stream.WithLogger(c.logger),
		stream.WithPollInterval(c.cfg.PollInterval),
		stream.WithPushKeepAlive(c.cfg.PushIdlePing, c.cfg.PushIdleDead),
	)
}

// String renders a human-readable identity for logging/debugging.
func (c *Client) String() string {
	return fmt.Sprintf("dagsdk.Client{deployment=%s}", c.deployment.Name)
}
