package metrics

import (
	"sync/atomic"
)

// Metrics tracks operational metrics.
type Metrics struct {
	WebhooksReceived     uint64 `json:"webhooks_received"`
	WebhooksRejected     uint64 `json:"webhooks_rejected"`
	WebhooksIgnored      uint64 `json:"webhooks_ignored"`
	EventsMalformed      uint64 `json:"events_malformed"`
	AnalysesStarted      uint64 `json:"analyses_started"`
	AnalysesSkippedState uint64 `json:"analyses_skipped_state"`
	AnalysesCompleted    uint64 `json:"analyses_completed"`
	AnalysesFailed       uint64 `json:"analyses_failed"`
	PipelineErrors       uint64 `json:"pipeline_errors"`
	CommentsPosted       uint64 `json:"comments_posted"`
}

var global = &Metrics{}

// WebhookReceived increments the count of webhooks received.
func WebhookReceived() { atomic.AddUint64(&global.WebhooksReceived, 1) }

// WebhookRejected increments the count of webhooks rejected for a bad token.
func WebhookRejected() { atomic.AddUint64(&global.WebhooksRejected, 1) }

// WebhookIgnored increments the count of webhooks with an unhandled event kind.
func WebhookIgnored() { atomic.AddUint64(&global.WebhooksIgnored, 1) }

// EventMalformed increments the count of events dropped for a missing project or MR id.
func EventMalformed() { atomic.AddUint64(&global.EventsMalformed, 1) }

// AnalysisStarted increments the count of analyses that passed the state check.
func AnalysisStarted() { atomic.AddUint64(&global.AnalysesStarted, 1) }

// AnalysisSkippedState increments the count of analyses skipped because the MR was not open.
func AnalysisSkippedState() { atomic.AddUint64(&global.AnalysesSkippedState, 1) }

// AnalysisCompleted increments the count of analyses that stored an engine verdict.
func AnalysisCompleted() { atomic.AddUint64(&global.AnalysesCompleted, 1) }

// AnalysisFailed increments the count of analyses that stored a failed review.
func AnalysisFailed() { atomic.AddUint64(&global.AnalysesFailed, 1) }

// PipelineError increments the count of background tasks that ended with an error.
func PipelineError() { atomic.AddUint64(&global.PipelineErrors, 1) }

// CommentPosted increments the count of comments posted to GitLab.
func CommentPosted() { atomic.AddUint64(&global.CommentsPosted, 1) }

// Get returns a snapshot of the current metrics.
func Get() Metrics {
	return Metrics{
		WebhooksReceived:     atomic.LoadUint64(&global.WebhooksReceived),
		WebhooksRejected:     atomic.LoadUint64(&global.WebhooksRejected),
		WebhooksIgnored:      atomic.LoadUint64(&global.WebhooksIgnored),
		EventsMalformed:      atomic.LoadUint64(&global.EventsMalformed),
		AnalysesStarted:      atomic.LoadUint64(&global.AnalysesStarted),
		AnalysesSkippedState: atomic.LoadUint64(&global.AnalysesSkippedState),
		AnalysesCompleted:    atomic.LoadUint64(&global.AnalysesCompleted),
		AnalysesFailed:       atomic.LoadUint64(&global.AnalysesFailed),
		PipelineErrors:       atomic.LoadUint64(&global.PipelineErrors),
		CommentsPosted:       atomic.LoadUint64(&global.CommentsPosted),
	}
}

// Reset resets all metrics to zero (useful for testing).
func Reset() {
	atomic.StoreUint64(&global.WebhooksReceived, 0)
	atomic.StoreUint64(&global.WebhooksRejected, 0)
	atomic.StoreUint64(&global.WebhooksIgnored, 0)
	atomic.StoreUint64(&global.EventsMalformed, 0)
	atomic.StoreUint64(&global.AnalysesStarted, 0)
	atomic.StoreUint64(&global.AnalysesSkippedState, 0)
	atomic.StoreUint64(&global.AnalysesCompleted, 0)
	atomic.StoreUint64(&global.AnalysesFailed, 0)
	atomic.StoreUint64(&global.PipelineErrors, 0)
	atomic.StoreUint64(&global.CommentsPosted, 0)
}
