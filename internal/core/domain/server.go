package domain

// ServiceType selects which backend service a request targets.
// Each service type has its own default server and its own override.
type ServiceType string

const (
	ServiceImage ServiceType = "image"
	ServiceVideo ServiceType = "video"
)

// Server is one interchangeable backend proxy endpoint.
type Server struct {
	Name string
	URL  string
}

// RequestClass tags what kind of call is being dispatched. Generation-class
// calls go through admission control; probes never do and never produce
// failure reports.
type RequestClass string

const (
	ClassGeneration RequestClass = "generation"
	ClassProbe      RequestClass = "probe"
)

// StatusFunc receives coarse human-readable progress strings
// ("Queueing...", "Processing..."). Purely observational.
type StatusFunc func(message string)
