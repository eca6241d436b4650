package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                string  // connection string for the database
	Store             string  // storage backend: memory, postgres or rest
	Engine            string  // engine service: sim or http
	APIURL            string  // base URL of the async-race REST API
	Addr              string  // listen addr of the HTTP API
	NatsURL           string  // NATS server, empty disables publishing
	WaitForServices   string  // duration to wait for other services to be ready
	LogLevel          string  // sets the log level (zap log level values)
	SQLLogLevel       string  // sets the log level for sql subsystem
	LogFormat         string  // text vs json
	LogConfig         string  // path to log config file
	EnableTelemetry   bool    // enable telemetry
	TelemetryEndpoint string  // endpoint for telemetry, "stdout" for local output
	ProfilingPort     int     // port for profiling
	AdminToken        string  // token for admin access
	AdminTokenHash    string  // sha256 hex digest of the admin token
	TLSCertFile       string  // server certificate, enables TLS together with TLSKeyFile
	TLSKeyFile        string  // server key
	TLSCAFile         string  // CA for optional client certificates
	TickInterval      string  // animation frame interval
	TimeScale         float64 // animation milliseconds per nominal second
	MinDuration       string  // lower bound of the animation duration
	MaxDuration       string  // upper bound of the animation duration
	BreakdownRate     float64 // failure probability of the sim engine
	SimDistance       float64 // distance reported by the sim engine
)
