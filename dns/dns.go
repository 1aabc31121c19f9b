package dns

//go:generate errtrace -w .

import (
	"cmp"
	"context"
	"net"
	"slices"
	"sync"
	"time"

	"braces.dev/errtrace"
	"github.com/miekg/dns"

	"github.com/ghettovoice/gosip/internal/types"
)

// Defaults for the dedup/cache/worker-pool layer wrapped around the raw
// lookups below.
const (
	defaultWorkerPoolSize = 5
	defaultCacheTTL       = 30 * time.Second
	defaultLookupTimeout  = 5 * time.Second
)

// Resolver wraps net.Resolver with additional DNS lookup capabilities: NAPTR
// lookups via github.com/miekg/dns, in-flight request deduplication so
// concurrent lookups for the same question produce exactly one on-the-wire
// query, a TTL-respecting answer cache, and a bounded worker pool that
// actually executes the queries.
type Resolver struct {
	net.Resolver

	// NameServer specifies the DNS server address (e.g., "8.8.8.8:53").
	// If empty, the system's default resolver configuration is used.
	NameServer string
	// Timeout specifies the timeout for a single DNS query. If zero,
	// defaults to 5 seconds. A synchronous Lookup call is given up to twice
	// this long to either get an answer or attach to one already in flight.
	Timeout time.Duration
	// CacheTTL overrides the TTL used for cached answers that carry no TTL
	// of their own (A/AAAA, SRV). NAPTR answers use the TTL reported by the
	// server instead. If zero, defaults to 30 seconds.
	CacheTTL time.Duration
	// WorkerPoolSize overrides the number of goroutines draining the lookup
	// job queue. If zero, defaults to 5.
	WorkerPoolSize int

	poolOnce sync.Once
	jobs     chan func()

	ipCache    dedupCache[[]net.IP]
	srvCache   dedupCache[[]*SRV]
	naptrCache dedupCache[[]*NAPTR]
}

// dedupCache is a TTL cache keyed by query, paired with an in-flight table
// so that concurrent lookups sharing a key attach as duplicates to the same
// pending call instead of each issuing their own query.
type dedupCache[T any] struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry[T]
	inflight map[string]*inflightCall[T]
}

type cacheEntry[T any] struct {
	val     T
	expires time.Time
}

// inflightCall is the pending query for one key. The leader that creates it
// runs the query on the worker pool; every caller — the leader included —
// attaches a waiter channel and blocks on it. The leader closes every
// attached waiter once val/err are set, RFC-less but mirroring the
// attach-as-duplicate shape of [types.CallbackManager]'s registered
// listeners elsewhere in this module.
type inflightCall[T any] struct {
	val     T
	err     error
	waiters types.CallbackManager[chan struct{}]
}

func (c *dedupCache[T]) get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		var zero T
		return zero, false
	}
	return e.val, true
}

// attach registers a new waiter for key's in-flight call, creating one (and
// reporting isLeader=true) if none exists yet.
func (c *dedupCache[T]) attach(key string) (call *inflightCall[T], ch chan struct{}, remove func(), isLeader bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if call, ok := c.inflight[key]; ok {
		ch := make(chan struct{})
		return call, ch, call.waiters.Add(ch), false
	}

	call = &inflightCall[T]{}
	if c.inflight == nil {
		c.inflight = make(map[string]*inflightCall[T])
	}
	c.inflight[key] = call
	ch = make(chan struct{})
	return call, ch, call.waiters.Add(ch), true
}

func (c *dedupCache[T]) complete(key string, call *inflightCall[T], val T, ttl time.Duration, err error) {
	c.mu.Lock()
	delete(c.inflight, key)
	if err == nil {
		if c.entries == nil {
			c.entries = make(map[string]cacheEntry[T])
		}
		c.entries[key] = cacheEntry[T]{val: val, expires: time.Now().Add(ttl)}
	}
	c.mu.Unlock()

	call.val, call.err = val, err
	for w := range call.waiters.All() {
		close(w)
	}
}

// lookup runs fn deduplicated and cached under key, RFC 3263-agnostic: it
// applies regardless of record type. Only the leader for key actually
// submits fn to the worker pool; every other concurrent caller for the same
// key attaches as a duplicate and shares its result.
func lookup[T any](ctx context.Context, r *Resolver, cache *dedupCache[T], key string, fn func(context.Context) (T, time.Duration, error)) (T, error) {
	if val, ok := cache.get(key); ok {
		return val, nil
	}

	call, ch, remove, isLeader := cache.attach(key)
	if isLeader {
		r.submit(func() {
			qctx, cancel := context.WithTimeout(context.Background(), r.timeout())
			defer cancel()
			val, ttl, err := fn(qctx)
			cache.complete(key, call, val, ttl, err)
		})
	}

	ctx, cancel := context.WithTimeout(ctx, 2*r.timeout())
	defer cancel()
	select {
	case <-ch:
		return call.val, call.err
	case <-ctx.Done():
		remove()
		var zero T
		return zero, ctx.Err()
	}
}

// ensureInFlight starts fn on the worker pool for key unless an answer is
// already cached or a lookup for key is already running, without blocking
// the caller on its completion.
func ensureInFlight[T any](r *Resolver, cache *dedupCache[T], key string, fn func(context.Context) (T, time.Duration, error)) {
	if _, ok := cache.get(key); ok {
		return
	}

	call, ch, remove, isLeader := cache.attach(key)
	if !isLeader {
		remove()
		return
	}
	r.submit(func() {
		qctx, cancel := context.WithTimeout(context.Background(), r.timeout())
		defer cancel()
		val, ttl, err := fn(qctx)
		cache.complete(key, call, val, ttl, err)
	})
	_ = ch
}

func (r *Resolver) submit(job func()) {
	r.poolOnce.Do(func() {
		n := r.WorkerPoolSize
		if n <= 0 {
			n = defaultWorkerPoolSize
		}
		r.jobs = make(chan func(), n*4)
		for range n {
			go r.work()
		}
	})
	r.jobs <- job
}

func (r *Resolver) work() {
	for job := range r.jobs {
		job()
	}
}

func ipCacheKey(network, host string) string { return "ip\x00" + network + "\x00" + host }

// LookupIP resolves host to its A/AAAA addresses. An IP-literal host
// bypasses the cache and worker pool entirely and resolves inline.
func (r *Resolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{normalizeIP(ip)}, nil
	}

	val, err := lookup(ctx, r, &r.ipCache, ipCacheKey(network, host), func(qctx context.Context) ([]net.IP, time.Duration, error) {
		ips, err := r.Resolver.LookupIP(qctx, network, host)
		if err != nil {
			return nil, 0, errtrace.Wrap(err)
		}
		for i, ip := range ips {
			ips[i] = normalizeIP(ip)
		}
		return ips, r.cacheTTL(), nil
	})
	return val, errtrace.Wrap(err)
}

// LookupIPAsync returns the cached A/AAAA answer for host, if any, without
// blocking the caller. When no answer is cached and no lookup for host is
// already running, it starts a background lookup that populates the cache;
// a cached answer is returned as is and is not refreshed before its TTL
// expires. A nil result means nothing is cached yet.
func (r *Resolver) LookupIPAsync(network, host string) []net.IP {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{normalizeIP(ip)}
	}

	key := ipCacheKey(network, host)
	val, _ := r.ipCache.get(key)
	ensureInFlight(r, &r.ipCache, key, func(qctx context.Context) ([]net.IP, time.Duration, error) {
		ips, err := r.Resolver.LookupIP(qctx, network, host)
		if err != nil {
			return nil, 0, errtrace.Wrap(err)
		}
		for i, ip := range ips {
			ips[i] = normalizeIP(ip)
		}
		return ips, r.cacheTTL(), nil
	})
	return val
}

func normalizeIP(ip net.IP) net.IP {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4
	}
	return ip
}

type SRV = net.SRV

func srvCacheKey(service, proto, host string) string {
	return "srv\x00" + service + "\x00" + proto + "\x00" + host
}

// LookupSRV resolves the SRV records for _service._proto.host, RFC 2782.
func (r *Resolver) LookupSRV(ctx context.Context, service, proto, host string) ([]*SRV, error) {
	val, err := lookup(ctx, r, &r.srvCache, srvCacheKey(service, proto, host), func(qctx context.Context) ([]*SRV, time.Duration, error) {
		_, srvs, err := r.Resolver.LookupSRV(qctx, service, proto, host)
		if err != nil {
			return nil, 0, errtrace.Wrap(err)
		}
		return srvs, r.cacheTTL(), nil
	})
	return val, errtrace.Wrap(err)
}

// NAPTR represents a NAPTR DNS record as defined in RFC 3403.
// NAPTR records are used for URI resolution, particularly in SIP (RFC 3263)
// for discovering transport protocols and services.
type NAPTR struct {
	// Order specifies the order in which NAPTR records must be processed.
	// Lower values are processed first.
	Order uint16
	// Preference specifies the preference for records with equal Order values.
	// Lower values are preferred.
	Preference uint16
	// Flags control aspects of the rewriting and interpretation of fields.
	// Common flags: "s" (SRV lookup), "a" (A/AAAA lookup), "u" (terminal URI).
	Flags string
	// Service specifies the service and protocol available.
	// For SIP: "SIP+D2U" (UDP), "SIP+D2T" (TCP), "SIP+D2S" (SCTP), "SIPS+D2T" (TLS).
	Service string
	// Regexp is a substitution expression applied to the original string.
	// Usually empty when Replacement is used.
	Regexp string
	// Replacement is the next domain name to query.
	// Usually points to an SRV record when Flags is "s".
	Replacement string
}

// LookupNAPTR queries NAPTR records for the given host.
// Returns records sorted by Order (ascending), then by Preference (ascending).
func (r *Resolver) LookupNAPTR(ctx context.Context, host string) ([]*NAPTR, error) {
	val, err := lookup(ctx, r, &r.naptrCache, "naptr\x00"+host, func(qctx context.Context) ([]*NAPTR, time.Duration, error) {
		return r.queryNAPTR(qctx, host)
	})
	return val, errtrace.Wrap(err)
}

func (r *Resolver) queryNAPTR(ctx context.Context, host string) ([]*NAPTR, time.Duration, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeNAPTR)
	m.RecursionDesired = true

	nameserver, err := r.nameserver()
	if err != nil {
		return nil, 0, errtrace.Wrap(err)
	}

	client := &dns.Client{Timeout: r.timeout()}
	resp, _, err := client.ExchangeContext(ctx, m, nameserver)
	if err != nil {
		return nil, 0, errtrace.Wrap(err)
	}

	if resp.Rcode != dns.RcodeSuccess {
		return nil, 0, errtrace.Wrap(&net.DNSError{
			Err:        dns.RcodeToString[resp.Rcode],
			Name:       host,
			IsNotFound: resp.Rcode == dns.RcodeNameError,
		})
	}

	recs := make([]*NAPTR, 0, len(resp.Answer))
	minTTL := uint32(0)
	for _, ans := range resp.Answer {
		if rr, ok := ans.(*dns.NAPTR); ok {
			recs = append(recs, &NAPTR{
				Order:       rr.Order,
				Preference:  rr.Preference,
				Flags:       rr.Flags,
				Service:     rr.Service,
				Regexp:      rr.Regexp,
				Replacement: rr.Replacement,
			})
			if minTTL == 0 || rr.Hdr.Ttl < minTTL {
				minTTL = rr.Hdr.Ttl
			}
		}
	}

	// Sort by Order, then by Preference (RFC 3403)
	slices.SortFunc(recs, func(a, b *NAPTR) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.Preference, b.Preference)
	})

	ttl := r.cacheTTL()
	if minTTL > 0 {
		ttl = time.Duration(minTTL) * time.Second
	}
	return recs, ttl, nil
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return defaultLookupTimeout
}

func (r *Resolver) cacheTTL() time.Duration {
	if r.CacheTTL > 0 {
		return r.CacheTTL
	}
	return defaultCacheTTL
}

func (r *Resolver) nameserver() (string, error) {
	if r.NameServer != "" {
		if _, _, err := net.SplitHostPort(r.NameServer); err != nil {
			return net.JoinHostPort(r.NameServer, "53"), nil //nolint:nilerr
		}
		return r.NameServer, nil
	}

	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return "", errtrace.Wrap(err)
	}
	if len(conf.Servers) == 0 {
		return "", errtrace.Wrap(&net.DNSError{
			Err:  "no DNS servers configured",
			Name: "resolv.conf",
		})
	}

	return net.JoinHostPort(conf.Servers[0], conf.Port), nil
}

var defResolver = &Resolver{}

func DefaultResolver() *Resolver { return defResolver }

func LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	return errtrace.Wrap2(defResolver.LookupIP(ctx, "ip", host))
}

func LookupSRV(ctx context.Context, service, proto, host string) ([]*SRV, error) {
	return errtrace.Wrap2(defResolver.LookupSRV(ctx, service, proto, host))
}

func LookupNAPTR(ctx context.Context, host string) ([]*NAPTR, error) {
	return errtrace.Wrap2(defResolver.LookupNAPTR(ctx, host))
}
