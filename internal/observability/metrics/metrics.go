package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type collector interface {
	write(sb *strings.Builder)
}

type counterVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

type gaugeVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

type histogramVec struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.RWMutex
	values map[string]*histogramValue
}

type histogramValue struct {
	counts []uint64
	sum    float64
	total  uint64
}

// Outcome labels shared by the operation and column counters.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeResolved = "resolved"
	OutcomeUnknown  = "unknown"
)

var (
	collectors []collector

	operations       = newCounterVec("xorgen_operations_total", "Number of cipher operations executed, by operation and outcome.", []string{"operation", "outcome"})
	recoveryColumns  = newCounterVec("xorgen_recovery_columns_total", "Number of key columns analysed during recovery, by column class and outcome.", []string{"class", "outcome"})
	recoveryDuration = newHistogramVec("xorgen_recovery_duration_seconds", "Wall time spent recovering a key from ciphertext.", nil)
	httpRequests     = newCounterVec("xorgen_http_requests_total", "Number of API requests served, by route and status code.", []string{"route", "code"})
	httpInflight     = newGaugeVec("xorgen_http_inflight_requests", "Number of API requests currently being served.", nil)

	totalRecoveries uint64
)

func init() {
	collectors = []collector{operations, recoveryColumns, recoveryDuration, httpRequests, httpInflight}
}

func newCounterVec(name, help string, labels []string) *counterVec {
	return &counterVec{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

func newGaugeVec(name, help string, labels []string) *gaugeVec {
	return &gaugeVec{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

func newHistogramVec(name, help string, labels []string) *histogramVec {
	return &histogramVec{
		name:    name,
		help:    help,
		labels:  labels,
		buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		values:  make(map[string]*histogramValue),
	}
}

func labelKey(labels, values []string) string {
	if len(values) != len(labels) {
		panic(fmt.Sprintf("expected %d labels, got %d", len(labels), len(values)))
	}
	return strings.Join(values, ",")
}

func (cv *counterVec) add(delta float64, values ...string) {
	key := labelKey(cv.labels, values)
	cv.mu.Lock()
	cv.values[key] += delta
	cv.mu.Unlock()
}

func (cv *counterVec) value(values ...string) float64 {
	key := labelKey(cv.labels, values)
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	return cv.values[key]
}

func (cv *counterVec) write(sb *strings.Builder) {
	writeHeader(sb, cv.name, cv.help, "counter")
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	for _, key := range sortedKeys(cv.values) {
		sb.WriteString(cv.name)
		writeLabels(sb, cv.labels, key, "")
		fmt.Fprintf(sb, " %g\n", cv.values[key])
	}
}

func (gv *gaugeVec) add(delta float64, values ...string) {
	key := labelKey(gv.labels, values)
	gv.mu.Lock()
	gv.values[key] += delta
	gv.mu.Unlock()
}

func (gv *gaugeVec) write(sb *strings.Builder) {
	writeHeader(sb, gv.name, gv.help, "gauge")
	gv.mu.RLock()
	defer gv.mu.RUnlock()
	for _, key := range sortedKeys(gv.values) {
		sb.WriteString(gv.name)
		writeLabels(sb, gv.labels, key, "")
		fmt.Fprintf(sb, " %g\n", gv.values[key])
	}
}

func (hv *histogramVec) Observe(values []string, sample float64) {
	key := labelKey(hv.labels, values)
	hv.mu.Lock()
	defer hv.mu.Unlock()
	entry, ok := hv.values[key]
	if !ok {
		entry = &histogramValue{counts: make([]uint64, len(hv.buckets)+1)}
		hv.values[key] = entry
	}
	entry.sum += sample
	entry.total++
	idx := sort.SearchFloat64s(hv.buckets, sample)
	entry.counts[idx]++
}

func (hv *histogramVec) write(sb *strings.Builder) {
	writeHeader(sb, hv.name, hv.help, "histogram")
	hv.mu.RLock()
	defer hv.mu.RUnlock()
	for _, key := range sortedKeys(hv.values) {
		entry := hv.values[key]
		cumulative := uint64(0)
		for i, upper := range hv.buckets {
			cumulative += entry.counts[i]
			sb.WriteString(hv.name + "_bucket")
			writeLabels(sb, hv.labels, key, fmt.Sprintf("le=\"%g\"", upper))
			fmt.Fprintf(sb, " %d\n", cumulative)
		}
		cumulative += entry.counts[len(hv.buckets)]
		sb.WriteString(hv.name + "_bucket")
		writeLabels(sb, hv.labels, key, "le=\"+Inf\"")
		fmt.Fprintf(sb, " %d\n", cumulative)

		sb.WriteString(hv.name + "_sum")
		writeLabels(sb, hv.labels, key, "")
		fmt.Fprintf(sb, " %g\n", entry.sum)
		sb.WriteString(hv.name + "_count")
		writeLabels(sb, hv.labels, key, "")
		fmt.Fprintf(sb, " %d\n", entry.total)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeLabels renders {label="value",...} for a joined label key. extra is
// appended verbatim after the named labels.
func writeLabels(sb *strings.Builder, labels []string, key, extra string) {
	if len(labels) == 0 && extra == "" {
		return
	}
	sb.WriteString("{")
	if len(labels) > 0 {
		parts := strings.Split(key, ",")
		for i, label := range labels {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(label)
			sb.WriteString("=\"")
			sb.WriteString(escapeLabel(parts[i]))
			sb.WriteString("\"")
		}
		if extra != "" {
			sb.WriteString(",")
		}
	}
	sb.WriteString(extra)
	sb.WriteString("}")
}

func writeHeader(sb *strings.Builder, name, help, metricType string) {
	sb.WriteString("# HELP ")
	sb.WriteString(name)
	sb.WriteString(" ")
	sb.WriteString(help)
	sb.WriteString("\n# TYPE ")
	sb.WriteString(name)
	sb.WriteString(" ")
	sb.WriteString(metricType)
	sb.WriteString("\n")
}

func escapeLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\n", "\\n")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}

// Handler exposes the metrics registry as an http.Handler compatible with Prometheus.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var sb strings.Builder
		for _, collector := range collectors {
			collector.write(&sb)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(sb.String()))
	})
}

// RecordOperation counts one execution of a named operation.
func RecordOperation(operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	operations.add(1, operation, outcome)
}

// RecordRecoveryColumn counts one analysed key column.
func RecordRecoveryColumn(class string, resolved bool) {
	outcome := OutcomeUnknown
	if resolved {
		outcome = OutcomeResolved
	}
	recoveryColumns.add(1, class, outcome)
}

// ObserveRecoveryDuration records the wall time of a completed recovery.
func ObserveRecoveryDuration(dur time.Duration) {
	recoveryDuration.Observe(nil, dur.Seconds())
	atomic.AddUint64(&totalRecoveries, 1)
}

// RecordHTTPRequest counts a served API request.
func RecordHTTPRequest(route string, code int) {
	route = strings.TrimSpace(route)
	if route == "" {
		route = "unknown"
	}
	httpRequests.add(1, route, strconv.Itoa(code))
}

// TrackInflight increments the in-flight gauge and returns the matching decrement.
func TrackInflight() func() {
	httpInflight.add(1)
	return func() { httpInflight.add(-1) }
}

// OperationCount returns the current counter value for an operation and outcome.
func OperationCount(operation, outcome string) float64 {
	return operations.value(operation, outcome)
}

// TotalRecoveries returns the number of recoveries completed since process start.
func TotalRecoveries() uint64 {
	return atomic.LoadUint64(&totalRecoveries)
}
