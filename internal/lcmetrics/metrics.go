// Package lcmetrics exposes the WRT/ART result tables as Prometheus
// gauges, the way the TCP-info collector this is adapted from walked its
// tracked connections on each scrape rather than pushing on every change.
package lcmetrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacely/limitchecker/internal/lcresult"
	"github.com/spacely/limitchecker/internal/lctable"
)

// Collector implements prometheus.Collector over one app's result tables.
// Collect is called concurrently with the monitoring loop's mutations, so
// it takes a snapshot under lock rather than reading fields piecemeal.
type Collector struct {
	mu      sync.Mutex
	tables  *lctable.Tables
	results *lcresult.Results

	wpResult       *prometheus.Desc
	wpEvalCount    *prometheus.Desc
	apResult       *prometheus.Desc
	apState        *prometheus.Desc
	apFailCount    *prometheus.Desc
	apRTSExecCount *prometheus.Desc
	appCounters    *prometheus.Desc
}

// NewCollector builds a Collector over tables/results; both must outlive
// the collector and are read, never mutated, by Collect.
func NewCollector(tables *lctable.Tables, results *lcresult.Results) *Collector {
	return &Collector{
		tables:  tables,
		results: results,
		wpResult: prometheus.NewDesc(
			"lc_watchpoint_result", "Current ternary result of a watchpoint (0=STALE,1=FALSE,2=TRUE,3=ERROR).",
			[]string{"wp"}, nil,
		),
		wpEvalCount: prometheus.NewDesc(
			"lc_watchpoint_evaluation_count_total", "Cumulative evaluations of a watchpoint.",
			[]string{"wp"}, nil,
		),
		apResult: prometheus.NewDesc(
			"lc_actionpoint_result", "Current result of an actionpoint's RPN evaluation (0=STALE,1=PASS,2=FAIL,3=ERROR).",
			[]string{"ap"}, nil,
		),
		apState: prometheus.NewDesc(
			"lc_actionpoint_state", "Current state of an actionpoint (0=NOT_USED,1=ACTIVE,2=PASSIVE,3=DISABLED,4=PERMOFF).",
			[]string{"ap"}, nil,
		),
		apFailCount: prometheus.NewDesc(
			"lc_actionpoint_cumulative_fail_count_total", "Cumulative FAIL evaluations of an actionpoint.",
			[]string{"ap"}, nil,
		),
		apRTSExecCount: prometheus.NewDesc(
			"lc_actionpoint_rts_exec_count_total", "Cumulative RTS requests triggered by an actionpoint.",
			[]string{"ap"}, nil,
		),
		appCounters: prometheus.NewDesc(
			"lc_app_counter", "Application-wide scalar counters named by the counter label.",
			[]string{"counter"}, nil,
		),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.wpResult
	descs <- c.wpEvalCount
	descs <- c.apResult
	descs <- c.apState
	descs <- c.apFailCount
	descs <- c.apRTSExecCount
	descs <- c.appCounters
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, wr := range c.results.Watchpoints {
		label := indexLabel(i)
		metrics <- prometheus.MustNewConstMetric(c.wpResult, prometheus.GaugeValue, float64(wr.WatchResult), label)
		metrics <- prometheus.MustNewConstMetric(c.wpEvalCount, prometheus.CounterValue, float64(wr.EvaluationCount), label)
	}

	for i, ar := range c.results.Actionpoints {
		label := indexLabel(i)
		metrics <- prometheus.MustNewConstMetric(c.apResult, prometheus.GaugeValue, float64(ar.ActionResult), label)
		metrics <- prometheus.MustNewConstMetric(c.apState, prometheus.GaugeValue, float64(ar.CurrentState), label)
		metrics <- prometheus.MustNewConstMetric(c.apFailCount, prometheus.CounterValue, float64(ar.CumulativeFailCount), label)
		metrics <- prometheus.MustNewConstMetric(c.apRTSExecCount, prometheus.CounterValue, float64(ar.CumulativeRTSExecCount), label)
	}

	app := c.results.App
	counters := map[string]uint32{
		"cmd_count":             app.CmdCount,
		"cmd_err_count":         app.CmdErrCount,
		"ap_sample_count":       app.APSampleCount,
		"monitored_msg_count":   app.MonitoredMsgCount,
		"rts_exec_count":        app.RTSExecCount,
		"passive_rts_exec_count": app.PassiveRTSExecCount,
	}
	for name, value := range counters {
		metrics <- prometheus.MustNewConstMetric(c.appCounters, prometheus.CounterValue, float64(value), name)
	}
}

func indexLabel(i int) string {
	return strconv.Itoa(i)
}
