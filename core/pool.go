package core

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// Connection is a single in-flight-capable socket bound to one Node,
// returned to the node's pool on success or closed on any error (spec.md
// §3/§4.3).
type Connection struct {
	net.Conn
	node     *Node
	lastUsed time.Time
}

// SetDeadline overrides net.Conn's to let the retry loop shrink the socket
// deadline between attempts without re-dialing (spec.md §4.4).
func (c *Connection) SetDeadline(t time.Time) error { return c.Conn.SetDeadline(t) }

const (
	breakerWindow       = 10 * time.Second
	breakerBucketWidth  = time.Second
	breakerErrorRate    = 0.5 // fraction of attempts that must fail to trip
	breakerMinAttempts  = 5   // don't trip on noise from a handful of attempts
	breakerCooldown     = 5 * time.Second
)

// circuitBreaker tracks a per-node sliding error-rate window (spec.md
// §4.3: "a per-node circuit-breaker window counts errors; when the rate
// exceeds threshold the node transitions to a backoff state"). Buckets are
// keyed by unix-second and pruned on every observation, so the window
// never holds more than breakerWindow worth of buckets.
type circuitBreaker struct {
	mu        sync.Mutex
	clock     clock.Clock
	buckets   map[int64]*breakerBucket
	openUntil time.Time
}

type breakerBucket struct {
	attempts int
	errors   int
}

func newCircuitBreaker(c clock.Clock) *circuitBreaker {
	return &circuitBreaker{clock: c, buckets: make(map[int64]*breakerBucket)}
}

func (cb *circuitBreaker) bucketKey(t time.Time) int64 {
	return t.Truncate(breakerBucketWidth).Unix()
}

func (cb *circuitBreaker) prune(now time.Time) {
	cutoff := now.Add(-breakerWindow).Unix()
	for k := range cb.buckets {
		if k < cutoff {
			delete(cb.buckets, k)
		}
	}
}

// observe records one attempt outcome and re-evaluates whether the breaker
// should be open.
func (cb *circuitBreaker) observe(isError bool) {
	now := cb.clock.Now()
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.prune(now)
	key := cb.bucketKey(now)
	b, ok := cb.buckets[key]
	if !ok {
		b = &breakerBucket{}
		cb.buckets[key] = b
	}
	b.attempts++
	if isError {
		b.errors++
	}
	var attempts, errs int
	for _, bucket := range cb.buckets {
		attempts += bucket.attempts
		errs += bucket.errors
	}
	if attempts >= breakerMinAttempts && float64(errs)/float64(attempts) >= breakerErrorRate {
		cb.openUntil = now.Add(breakerCooldown)
	}
}

// open reports whether the breaker currently rejects new acquisitions.
func (cb *circuitBreaker) open() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.clock.Now().Before(cb.openUntil)
}

// PoolConfig configures a Node's connection pool.
type PoolConfig struct {
	MaxIdle           int
	IdleTimeout       time.Duration
	MaxConnsInFlight  int // 0 = unbounded; beyond this Acquire fails fast with NO_MORE_CONNECTIONS
	Clock             clock.Clock
	Logger            *logrus.Logger
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxIdle <= 0 {
		c.MaxIdle = 8
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 55 * time.Second
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// Node is an opaque cluster member: a connection pool plus circuit-breaker
// error tracking (spec.md §3's Node invariants). Cluster topology
// (discovering which Nodes exist, and which partitions they own) is
// external (spec.md §1); Node itself is fully in scope.
type Node struct {
	id     string
	addr   string
	dialer *Dialer
	cfg    PoolConfig
	clock  clock.Clock
	log    *logrus.Logger

	mu          sync.Mutex
	idle        []*Connection
	inFlight    int
	closing     chan struct{}
	closeOnce   sync.Once

	breaker      *circuitBreaker
	errorCount   int64
	timeoutCount int64
}

// NewNode constructs a Node bound to addr with its own pool and breaker.
func NewNode(id, addr string, dialer *Dialer, cfg PoolConfig) *Node {
	cfg = cfg.withDefaults()
	n := &Node{
		id:      id,
		addr:    addr,
		dialer:  dialer,
		cfg:     cfg,
		clock:   cfg.Clock,
		log:     cfg.Logger,
		closing: make(chan struct{}),
		breaker: newCircuitBreaker(cfg.Clock),
	}
	go n.reap()
	return n
}

func (n *Node) String() string { return n.id }

// Acquire returns an idle connection or dials a new one, honoring ctx's
// deadline. It returns an *AerospikeError with Kind KindBackoff without
// attempting I/O when the node's circuit breaker is open, and
// ResultClientNoMoreConnections when MaxConnsInFlight is exceeded (spec.md
// §4.3).
func (n *Node) Acquire(ctx context.Context) (*Connection, error) {
	if n.breaker.open() {
		return nil, newBackoffError(n.id)
	}
	n.mu.Lock()
	if n.cfg.MaxConnsInFlight > 0 && n.inFlight >= n.cfg.MaxConnsInFlight {
		n.mu.Unlock()
		return nil, &AerospikeError{Kind: KindConnection, Code: ResultClientNoMoreConnections, Node: n.id}
	}
	if k := len(n.idle); k > 0 {
		c := n.idle[k-1]
		n.idle = n.idle[:k-1]
		n.inFlight++
		n.mu.Unlock()
		n.log.WithField("node", n.id).Debug("pool: reused idle connection")
		return c, nil
	}
	n.inFlight++
	n.mu.Unlock()

	conn, err := n.dialer.Dial(ctx, n.addr)
	if err != nil {
		n.mu.Lock()
		n.inFlight--
		n.mu.Unlock()
		n.breaker.observe(true)
		n.recordError()
		return nil, newConnectionError(err, n.id, 0)
	}
	return &Connection{Conn: conn, node: n, lastUsed: n.clock.Now()}, nil
}

// Release returns c to the idle pool, or closes it outright if the pool is
// already at MaxIdle. Per spec.md §3, a returned connection must have no
// unread bytes — that invariant is the caller command's responsibility to
// uphold before calling Release.
func (n *Node) Release(c *Connection) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inFlight--
	if len(n.idle) >= n.cfg.MaxIdle {
		_ = c.Close()
		return
	}
	c.lastUsed = n.clock.Now()
	n.idle = append(n.idle, c)
}

// CloseConnection discards c without returning it to the pool: used on any
// I/O or parse error that leaves the stream in an unknown state (spec.md
// §4.3/§4.4).
func (n *Node) CloseConnection(c *Connection) {
	n.mu.Lock()
	n.inFlight--
	n.mu.Unlock()
	_ = c.Close()
}

// recordError/recordTimeout/recordSuccess feed both the plain counters
// (surfaced via Stats, for operators) and the circuit breaker.
func (n *Node) recordError() {
	n.mu.Lock()
	n.errorCount++
	n.mu.Unlock()
}

func (n *Node) recordTimeout() {
	n.mu.Lock()
	n.timeoutCount++
	n.mu.Unlock()
	n.breaker.observe(true)
}

func (n *Node) recordSuccess() { n.breaker.observe(false) }

// Stats reports the node's idle connection count and lifetime error/timeout
// counters, for operator visibility.
type NodeStats struct {
	Idle     int
	InFlight int
	Errors   int64
	Timeouts int64
}

func (n *Node) Stats() NodeStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return NodeStats{Idle: len(n.idle), InFlight: n.inFlight, Errors: n.errorCount, Timeouts: n.timeoutCount}
}

// Close closes every idle connection and stops the reaper. In-flight
// connections are unaffected; callers holding one are expected to finish
// their command and call CloseConnection/Release as usual.
func (n *Node) Close() {
	n.closeOnce.Do(func() {
		close(n.closing)
		n.mu.Lock()
		defer n.mu.Unlock()
		for _, c := range n.idle {
			_ = c.Close()
		}
		n.idle = nil
	})
}

func (n *Node) reap() {
	ticker := n.clock.Ticker(n.cfg.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := n.clock.Now().Add(-n.cfg.IdleTimeout)
			n.mu.Lock()
			kept := n.idle[:0]
			for _, c := range n.idle {
				if c.lastUsed.Before(cutoff) {
					_ = c.Close()
					continue
				}
				kept = append(kept, c)
			}
			n.idle = kept
			n.mu.Unlock()
		case <-n.closing:
			return
		}
	}
}

// NodeRegistry is a bounded cache of Node objects keyed by node id, used by
// callers (e.g. the CLI/bench tool, or an external Cluster implementation)
// that create Nodes on demand as the topology layer reports them. Bounding
// it with an LRU means a cluster that churns through many short-lived node
// ids (rolling restarts, rebalances) cannot grow pool/breaker state
// unboundedly (spec.md §4.3); evicted nodes are closed.
type NodeRegistry struct {
	cache *lru.Cache[string, *Node]
}

// NewNodeRegistry builds a registry holding at most capacity Nodes.
func NewNodeRegistry(capacity int) (*NodeRegistry, error) {
	r := &NodeRegistry{}
	c, err := lru.NewWithEvict(capacity, func(_ string, n *Node) { n.Close() })
	if err != nil {
		return nil, err
	}
	r.cache = c
	return r, nil
}

// GetOrCreate returns the cached Node for id, constructing it via create if
// absent.
func (r *NodeRegistry) GetOrCreate(id string, create func() *Node) *Node {
	if n, ok := r.cache.Get(id); ok {
		return n
	}
	n := create()
	r.cache.Add(id, n)
	return n
}

// Remove evicts and closes the node for id, if present.
func (r *NodeRegistry) Remove(id string) {
	r.cache.Remove(id)
}
