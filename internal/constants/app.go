package constants

import (
	"time"
)

// Application identity
const (
	// AppName is used for the config directory, user agent and log file names
	AppName = "drivectl"

	// DefaultAPIBaseURL is used when no flag, environment variable or config file sets one
	DefaultAPIBaseURL = "http://localhost:5000/api"

	// RootFolderName is the display name of the synthetic root placeholder
	RootFolderName = "Root Folder"

	// SessionTokenKey is the persistent slot holding the bearer credential
	SessionTokenKey = "token"
)

// Event bus configuration
const (
	// EventBusDefaultBuffer - default buffer size for event channels (256)
	// Navigator events are small and infrequent compared to transfer progress
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - maximum buffer size (2000)
	EventBusMaxBuffer = 2000
)

// Request rate limiting
const (
	// DefaultRequestsPerSecond - steady request rate towards the backend
	DefaultRequestsPerSecond = 10.0

	// DefaultRequestBurst - requests allowed back to back before throttling kicks in.
	// A navigation issues three requests at once, so the burst must cover at least that.
	DefaultRequestBurst = 20

	// ThrottleWarnInterval - minimum gap between "waiting for rate limiter" warnings
	ThrottleWarnInterval = 10 * time.Second
)

// Tree walking and batch uploads
const (
	// TreeWalkConcurrency - parallel subfolder listings during `folders tree`
	TreeWalkConcurrency = 4

	// UploadConcurrency - parallel image uploads for `images upload` with several files
	UploadConcurrency = 3

	// MaxImageUploadSize - local guard against accidentally uploading huge files (50 MB)
	MaxImageUploadSize = 50 * 1024 * 1024
)

// HTTP Client Timeouts
const (
	// HTTPRequestTimeout - overall timeout for a single API call (60 seconds)
	HTTPRequestTimeout = 60 * time.Second

	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (30 seconds)
	HTTPTLSHandshakeTimeout = 30 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// ProxyWarmupTimeout - timeout for the optional proxy warmup request
	ProxyWarmupTimeout = 15 * time.Second
)

// Session persistence
const (
	// BoltOpenTimeout - how long to wait for the session database file lock
	BoltOpenTimeout = 2 * time.Second
)
