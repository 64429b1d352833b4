// Package telemetry records search query statistics: query shapes, popular
// terms, queries that found nothing and latency. Data stays in the local
// stats database.
package telemetry

import (
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueryType classifies a search query by its syntax.
type QueryType string

const (
	QueryTypeSingle  QueryType = "single"  // one plain term
	QueryTypeMulti   QueryType = "multi"   // several plain terms
	QueryTypeFielded QueryType = "fielded" // uses Field:term, + or -
)

// ClassifyQuery returns the type of a query string.
func ClassifyQuery(query string) QueryType {
	fields := strings.Fields(query)
	for _, f := range fields {
		if strings.HasPrefix(f, "+") || strings.HasPrefix(f, "-") || strings.Contains(f, ":") {
			return QueryTypeFielded
		}
	}
	if len(fields) > 1 {
		return QueryTypeMulti
	}
	return QueryTypeSingle
}

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// Buckets lists the latency buckets in ascending order.
var Buckets = []LatencyBucket{BucketP10, BucketP50, BucketP100, BucketP500, BucketP1000}

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is one executed search.
type QueryEvent struct {
	Query       string
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult reports whether the search found nothing.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// TermCount is a term with its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// ExtractTerms returns the lowercased terms of a query, without operators
// or field prefixes. Terms shorter than 3 runes are dropped.
func ExtractTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		f = strings.TrimLeft(f, "+-")
		if i := strings.LastIndexByte(f, ':'); i >= 0 {
			f = f[i+1:]
		}
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(f)) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

// QueryMetricsStore persists query statistics.
type QueryMetricsStore interface {
	SaveQueryTypeCounts(date string, counts map[QueryType]int64) error
	GetQueryTypeCounts(from, to string) (map[QueryType]int64, error)
	UpsertTermCounts(terms map[string]int64) error
	GetTopTerms(limit int) ([]TermCount, error)
	AddZeroResultQuery(query string, timestamp time.Time) error
	GetZeroResultQueries(limit int) ([]string, error)
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error
	GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error)
	Close() error
}

// QueryMetricsConfig configures the collector.
type QueryMetricsConfig struct {
	TopTermsCapacity    int           // max terms tracked in memory (default: 100)
	ZeroResultsCapacity int           // max zero-result queries kept (default: 100)
	FlushInterval       time.Duration // 0 disables auto-flush
}

// DefaultQueryMetricsConfig returns the defaults. Auto-flush is off; the CLI
// flushes on Close.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:    100,
		ZeroResultsCapacity: 100,
	}
}

// QueryMetricsSnapshot is a point-in-time view of the in-memory counters.
type QueryMetricsSnapshot struct {
	QueryTypeCounts     map[QueryType]int64     `json:"query_types"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of queries that found nothing.
func (s *QueryMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// QueryMetrics collects query statistics in memory and flushes the deltas
// to a store. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	queryTypes      map[QueryType]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     []QueryEvent
	latencies       map[LatencyBucket]int64
	totalQueries    int64
	zeroResultCount int64
	startTime       time.Time

	store  QueryMetricsStore
	config QueryMetricsConfig
	ticker *time.Ticker
	stopCh chan struct{}
	closed bool
}

// NewQueryMetrics creates a collector with the default configuration. A nil
// store keeps metrics in memory only.
func NewQueryMetrics(store QueryMetricsStore) *QueryMetrics {
	return NewQueryMetricsWithConfig(store, DefaultQueryMetricsConfig())
}

// NewQueryMetricsWithConfig creates a collector.
func NewQueryMetricsWithConfig(store QueryMetricsStore, cfg QueryMetricsConfig) *QueryMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}
	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)

	m := &QueryMetrics{
		queryTypes: make(map[QueryType]int64),
		topTerms:   topTerms,
		latencies:  make(map[LatencyBucket]int64),
		startTime:  time.Now(),
		store:      store,
		config:     cfg,
		stopCh:     make(chan struct{}),
	}
	if cfg.FlushInterval > 0 && store != nil {
		m.ticker = time.NewTicker(cfg.FlushInterval)
		go m.flushLoop()
	}
	return m
}

func (m *QueryMetrics) flushLoop() {
	for {
		select {
		case <-m.ticker.C:
			_ = m.Flush()
		case <-m.stopCh:
			return
		}
	}
}

// Record adds one query.
func (m *QueryMetrics) Record(event QueryEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.queryTypes[ClassifyQuery(event.Query)]++
	m.totalQueries++

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if event.IsZeroResult() {
		m.zeroResultCount++
		m.zeroResults = append(m.zeroResults, event)
		if over := len(m.zeroResults) - m.config.ZeroResultsCapacity; over > 0 {
			m.zeroResults = m.zeroResults[over:]
		}
	}

	m.latencies[LatencyToBucket(event.Latency)]++
}

// Snapshot returns the counters gathered since the last flush.
func (m *QueryMetrics) Snapshot() *QueryMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *QueryMetrics) snapshotLocked() *QueryMetricsSnapshot {
	typeCounts := make(map[QueryType]int64, len(m.queryTypes))
	for k, v := range m.queryTypes {
		typeCounts[k] = v
	}

	topTerms := make([]TermCount, 0, m.topTerms.Len())
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	slices.SortStableFunc(topTerms, func(a, b TermCount) int {
		if a.Count != b.Count {
			return int(b.Count - a.Count)
		}
		return strings.Compare(a.Term, b.Term)
	})

	zero := make([]string, len(m.zeroResults))
	for i, e := range m.zeroResults {
		zero[i] = e.Query
	}

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	return &QueryMetricsSnapshot{
		QueryTypeCounts:     typeCounts,
		TopTerms:            topTerms,
		ZeroResultQueries:   zero,
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		Since:               m.startTime,
	}
}

// Flush writes the counters to the store and resets them, so repeated
// flushes never count a query twice. Without a store it does nothing.
func (m *QueryMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	snap := m.snapshotLocked()
	pending := m.zeroResults
	m.reset()
	m.mu.Unlock()

	today := time.Now().Format(time.DateOnly)

	if err := m.store.SaveQueryTypeCounts(today, snap.QueryTypeCounts); err != nil {
		return err
	}
	terms := make(map[string]int64, len(snap.TopTerms))
	for _, tc := range snap.TopTerms {
		terms[tc.Term] = tc.Count
	}
	if err := m.store.UpsertTermCounts(terms); err != nil {
		return err
	}
	for _, e := range pending {
		if err := m.store.AddZeroResultQuery(e.Query, e.Timestamp); err != nil {
			return err
		}
	}
	return m.store.SaveLatencyCounts(today, snap.LatencyDistribution)
}

func (m *QueryMetrics) reset() {
	m.queryTypes = make(map[QueryType]int64)
	m.topTerms.Purge()
	m.zeroResults = nil
	m.latencies = make(map[LatencyBucket]int64)
	m.totalQueries = 0
	m.zeroResultCount = 0
	m.startTime = time.Now()
}

// Close stops auto-flush and flushes what is left. Record is a no-op
// afterwards.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.ticker != nil {
		m.ticker.Stop()
		close(m.stopCh)
	}
	return m.Flush()
}
