package config

import (
	"strings"
	"time"

	"github.com/deepgram/catgpt/pkg/logger"
)

const (
	DefaultAPIURL         = "http://localhost:8000"
	DefaultRequestTimeout = 2 * time.Minute
)

// Stream framings understood by the run client.
const (
	FramingAuto     = "auto"
	FramingSentinel = "sentinel"
	FramingSSE      = "sse"
)

// GetAPIBaseURL returns the chat backend base URL without a trailing slash.
// VITE_API_URL is honoured so the web front end's .env can be reused.
func GetAPIBaseURL() string {
	value := firstNonEmpty(
		GetEnvOrDefault("CATGPT_API_URL", ""),
		GetEnvOrDefault("VITE_API_URL", ""),
		file().APIURL,
		DefaultAPIURL,
	)
	return strings.TrimRight(value, "/")
}

// GetStreamFraming returns the configured run stream framing, "auto" when
// unset or unknown.
func GetStreamFraming() string {
	value := strings.ToLower(firstNonEmpty(GetEnvOrDefault("CATGPT_STREAM_FRAMING", ""), file().StreamFraming))
	switch value {
	case FramingSentinel, FramingSSE, FramingAuto:
		return value
	case "":
		return FramingAuto
	default:
		logger.Warn(logger.CONFIG, "Unknown stream framing %q, using auto", value)
		return FramingAuto
	}
}

// GetRequestTimeout bounds a single non-streaming request. Streams are bounded
// by their context only.
func GetRequestTimeout() time.Duration {
	if v := GetEnvOrDefault("CATGPT_REQUEST_TIMEOUT", ""); v != "" {
		return parseDuration("CATGPT_REQUEST_TIMEOUT", v, DefaultRequestTimeout)
	}
	return parseDuration("request_timeout", file().RequestTimeout, DefaultRequestTimeout)
}

// GetWatchAddr returns the listen address of the run status watch server, or
// "" when it is disabled.
func GetWatchAddr() string {
	return firstNonEmpty(GetEnvOrDefault("CATGPT_WATCH_ADDR", ""), file().WatchAddr)
}
