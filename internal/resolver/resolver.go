// Package resolver performs typed DNS lookups for the record types named on
// a task. Queries for one domain are fanned through a small bounded worker
// pool so a task with many record types cannot monopolize the upstream
// resolver connection.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/miekg/dns"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("geodig/resolver")

const (
	// maxParallelQueries bounds concurrent upstream queries per task.
	maxParallelQueries = 4

	defaultTimeout = 5 * time.Second
	fallbackServer = "1.1.1.1:53"

	resolvConfPath = "/etc/resolv.conf"
)

// Lookup is the outcome of one typed DNS query. Error is set when the query
// could not be answered; an empty Records with no Error means the name simply
// has no records of that type.
type Lookup struct {
	RecordType string   `json:"record_type"`
	Records    []string `json:"records"`
	DurationMS float64  `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// Options configure a Resolver. Zero values fall back to the system resolver
// and the default query timeout.
type Options struct {
	// Server is the upstream resolver as "host:port". Empty picks the first
	// nameserver from /etc/resolv.conf, or a public resolver when that file
	// is unreadable.
	Server  string
	Timeout time.Duration

	// Chaos knobs for exercising degraded behavior: probability that a task
	// resolves its record types sequentially instead of concurrently, and
	// probability that any single lookup fails outright.
	ChaosSequentialProb float64
	ChaosErrorProb      float64
}

// Resolver answers typed DNS queries against one upstream server.
type Resolver struct {
	client  *dns.Client
	server  string
	logger  *slog.Logger
	seqProb float64
	errProb float64
}

// New creates a Resolver from opts.
func New(logger *slog.Logger, opts Options) *Resolver {
	server := opts.Server
	if server == "" {
		server = systemResolver()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Resolver{
		client:  &dns.Client{Timeout: timeout},
		server:  server,
		logger:  logger,
		seqProb: opts.ChaosSequentialProb,
		errProb: opts.ChaosErrorProb,
	}
}

// Server returns the upstream resolver address queries are sent to.
func (r *Resolver) Server() string {
	return r.server
}

// systemResolver reads the first nameserver from resolv.conf.
func systemResolver() string {
	cfg, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil || len(cfg.Servers) == 0 {
		return fallbackServer
	}
	return net.JoinHostPort(cfg.Servers[0], cfg.Port)
}

// LookupAll resolves every record type for domain and returns one Lookup per
// type. Lookups run concurrently through the bounded pool unless the
// sequential chaos knob fires for this task. Individual failures are reported
// on their Lookup, never as an error for the whole set.
func (r *Resolver) LookupAll(ctx context.Context, domain string, recordTypes []string) map[string]Lookup {
	ctx, span := tracer.Start(ctx, "resolver.lookup_all")
	defer span.End()
	span.SetAttributes(
		attribute.String("dns.domain", domain),
		attribute.Int("dns.record_types", len(recordTypes)),
	)

	sequential := rand.Float64() < r.seqProb
	if sequential {
		span.SetAttributes(attribute.Bool("chaos.sequential", true))
	}

	results := make(map[string]Lookup, len(recordTypes))
	if sequential {
		for _, rt := range recordTypes {
			results[rt] = r.lookup(ctx, domain, rt)
		}
		return results
	}

	var mu sync.Mutex
	pool := workerpool.New(maxParallelQueries)
	for _, rt := range recordTypes {
		rt := rt
		pool.Submit(func() {
			res := r.lookup(ctx, domain, rt)
			mu.Lock()
			results[rt] = res
			mu.Unlock()
		})
	}
	pool.StopWait()

	return results
}

// lookup performs one typed query.
func (r *Resolver) lookup(ctx context.Context, domain, recordType string) Lookup {
	ctx, span := tracer.Start(ctx, "resolver.lookup")
	defer span.End()
	span.SetAttributes(
		attribute.String("dns.domain", domain),
		attribute.String("dns.record_type", recordType),
	)

	start := time.Now()
	result := Lookup{RecordType: recordType, Records: []string{}}

	if rand.Float64() < r.errProb {
		result.DurationMS = msSince(start)
		result.Error = "chaos: simulated lookup failure"
		span.SetAttributes(attribute.Bool("chaos.injected_error", true))
		return result
	}

	qtype, ok := dns.StringToType[strings.ToUpper(recordType)]
	if !ok {
		result.DurationMS = msSince(start)
		result.Error = fmt.Sprintf("unsupported record type %q", recordType)
		return result
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	result.DurationMS = msSince(start)
	if err != nil {
		result.Error = fmt.Sprintf("query %s: %v", r.server, err)
		r.logger.Debug("lookup failed",
			"domain", domain,
			"record_type", recordType,
			"error", err,
		)
		return result
	}
	if resp.Rcode != dns.RcodeSuccess {
		result.Error = fmt.Sprintf("server returned %s", dns.RcodeToString[resp.Rcode])
		return result
	}

	for _, rr := range resp.Answer {
		result.Records = append(result.Records, renderRecord(rr))
	}
	span.SetAttributes(attribute.Int("dns.answers", len(result.Records)))
	return result
}

// renderRecord formats an answer the way dig +short would print it.
func renderRecord(rr dns.RR) string {
	switch v := rr.(type) {
	case *dns.A:
		return v.A.String()
	case *dns.AAAA:
		return v.AAAA.String()
	case *dns.MX:
		return fmt.Sprintf("%d %s", v.Preference, v.Mx)
	case *dns.TXT:
		return strings.Join(v.Txt, "")
	case *dns.NS:
		return v.Ns
	case *dns.CNAME:
		return v.Target
	default:
		return strings.TrimSpace(strings.TrimPrefix(rr.String(), rr.Header().String()))
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
