package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for the ledger service.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	recordsIngested    = make(map[string]int64) // by pipeline name
	importsTotal       = make(map[string]int64) // by outcome
	validationFailures = make(map[string]int64) // by source (api, import, watcher)

	retentionImportsDeleted int64
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordIngested counts ledger rows accepted into the store, by
// pipeline name.
func RecordIngested(pipelineName string, count int64) {
	if count <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	recordsIngested[pipelineName] += count
}

// RecordImport counts a finished import by outcome (completed/failed).
func RecordImport(outcome string) {
	mu.Lock()
	defer mu.Unlock()
	importsTotal[outcome]++
}

// RecordValidationFailure counts rejected records by ingestion source.
func RecordValidationFailure(source string) {
	mu.Lock()
	defer mu.Unlock()
	validationFailures[source]++
}

// RecordRetentionImports increments the counter of import jobs deleted
// by TTL cleanup.
func RecordRetentionImports(deleted int64) {
	if deleted <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	retentionImportsDeleted += deleted
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP trailhead_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE trailhead_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "trailhead_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP trailhead_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE trailhead_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP trailhead_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE trailhead_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		fmt.Fprintf(&b, "trailhead_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsSum[k])
		fmt.Fprintf(&b, "trailhead_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsCount[k])
	}

	b.WriteString("# HELP trailhead_records_ingested_total Ledger rows accepted into the store by pipeline\n")
	b.WriteString("# TYPE trailhead_records_ingested_total counter\n")

	var pipelines []string
	for p := range recordsIngested {
		pipelines = append(pipelines, p)
	}
	sort.Strings(pipelines)
	for _, p := range pipelines {
		fmt.Fprintf(&b, "trailhead_records_ingested_total{pipeline=\"%s\"} %d\n", p, recordsIngested[p])
	}

	b.WriteString("# HELP trailhead_imports_total Finished ledger imports by outcome\n")
	b.WriteString("# TYPE trailhead_imports_total counter\n")

	var outcomes []string
	for o := range importsTotal {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(&b, "trailhead_imports_total{outcome=\"%s\"} %d\n", o, importsTotal[o])
	}

	b.WriteString("# HELP trailhead_validation_failures_total Rejected ledger records by ingestion source\n")
	b.WriteString("# TYPE trailhead_validation_failures_total counter\n")

	var sources []string
	for s := range validationFailures {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		fmt.Fprintf(&b, "trailhead_validation_failures_total{source=\"%s\"} %d\n", s, validationFailures[s])
	}

	b.WriteString("# HELP trailhead_retention_imports_deleted_total Total import jobs deleted by TTL\n")
	b.WriteString("# TYPE trailhead_retention_imports_deleted_total counter\n")
	fmt.Fprintf(&b, "trailhead_retention_imports_deleted_total %d\n", retentionImportsDeleted)

	return b.String()
}
