package observability

// Metric name prefix
const MetricPrefix = "highroll"

// Metric names
const (
	// HTTP metrics
	HTTPRequestsTotal   = MetricPrefix + "_http_requests_total"
	HTTPRequestDuration = MetricPrefix + "_http_request_duration_seconds"

	// Game metrics
	DiceRollsTotal     = MetricPrefix + "_dice_rolls_total"
	HighScoresTotal    = MetricPrefix + "_high_scores_total"
	RegistrationsTotal = MetricPrefix + "_registrations_total"
	LoginsTotal        = MetricPrefix + "_logins_total"
)

// Label keys
const (
	LabelMethod = "method"
	LabelRoute  = "route"
	LabelStatus = "status"
	LabelFace   = "face"
)
