package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Persian/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Persian"
	AppID             = "com.github.tartampluch.go-persian"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	// Used for creating secure cache directories.
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion  = "version"
	FlagDebug    = "debug"
	FlagConfig   = "config"
	FlagLogLevel = "log-level"
	FlagAt       = "at"
	FlagKind     = "kind"
	FlagPort     = "port"
	FlagFeed     = "feed"
	FlagIn       = "in"
	FlagOut      = "out"

	// FlagTimeout has no CLI flag; it names the http timeout setting in
	// precedence tracking and parse errors.
	FlagTimeout = "http-timeout"

	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging"
	FlagDescConfig   = "Path to the TOML configuration file"
	FlagDescLogLevel = "Log level: debug, info, warn, or error"
	FlagDescAt       = "Timestamp to convert, defaulting to now (RFC 3339; 2006-01-02T15:04:05 for kind=civil)"
	FlagDescKind     = "Temporal representation: utc, local, or civil"
	FlagDescPort     = "TCP port for the HTTP server"
	FlagDescFeed     = "iCalendar feed source: file path, http(s) URL, or - for stdin"
	FlagDescIn       = "Input source: file path, http(s) URL, or - for stdin"
	FlagDescOut      = "Output destination: file path, or - for stdout"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Conversion Kinds
// -----------------------------------------------------------------------------

const (
	// KindUTC converts a UTC instant; the result is labeled UTC.
	KindUTC = "utc"
	// KindLocal converts a reference-timezone instant; the result carries a
	// fixed zero offset.
	KindLocal = "local"
	// KindCivil converts a timezone-naive reading.
	KindCivil = "civil"
)

// SupportedKinds defines the accepted values of the kind flag/parameter.
var SupportedKinds = []string{KindUTC, KindLocal, KindCivil}

// -----------------------------------------------------------------------------
// Log Levels
// -----------------------------------------------------------------------------

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// SupportedLogLevels defines the accepted values of the log level setting.
var SupportedLogLevels = []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort        = 18030
	DefaultKind        = KindUTC
	DefaultLogLevel    = LogLevelInfo
	DefaultFeedRefresh = 1 * time.Hour
	DefaultLeapYear    = 2000 // Leap year anchor for year-less dates like --02-29
	SourceStdin        = "-"
	FallbackName       = "Unknown"
)

// -----------------------------------------------------------------------------
// Environment Variables & Config File
// -----------------------------------------------------------------------------

const (
	EnvPort        = "GOPERSIAN_PORT"
	EnvKind        = "GOPERSIAN_KIND"
	EnvFeed        = "GOPERSIAN_FEED"
	EnvLogLevel    = "GOPERSIAN_LOG_LEVEL"
	EnvHTTPTimeout = "GOPERSIAN_HTTP_TIMEOUT"

	ConfigDirName  = ".go-persian"
	ConfigFileName = "config.toml"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	ICalEventName = "VEVENT"

	// iCal Properties & Parameters
	PropDTStart      = "DTSTART"
	PropDTStamp      = "DTSTAMP"
	PropXPersianDate = "X-PERSIAN-DATE"
	ParamTZID        = "TZID"
	ParamValue       = "VALUE"
	ValueDate        = "DATE"
	UTCSuffix        = "Z"

	VCardBDAY = "BDAY"
	VCardFN   = "FN"
	VCardN    = "N"
)

// -----------------------------------------------------------------------------
// Data Formats & Limits
// -----------------------------------------------------------------------------

const (
	// Date layouts used for parsing vCard BDAY fields
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// LayoutCivil parses timezone-naive timestamps at the CLI/HTTP boundary.
	LayoutCivil = "2006-01-02T15:04:05"

	// FormatPersianDate renders a Jalali year/month/day triple.
	FormatPersianDate = "%04d-%02d-%02d"

	// Birthday listing lines: name, Gregorian date, Persian date, and the
	// year-less variant carrying only the recurring month/day.
	FormatBirthdayLine         = "%s: %s (%s)\n"
	FormatYearlessBirthdayLine = "%s: --%02d-%02d\n"

	// Limits
	MinPort = 1
	MaxPort = 65535
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	MaxHTTPResponseSize = 256 * 1024 * 1024 // 256MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	SchemeSeparator     = "://"
	AddrSeparator       = ":"
)

// -----------------------------------------------------------------------------
// Routes & Query Parameters
// -----------------------------------------------------------------------------

const (
	RouteHealthz = "/healthz"
	RouteConvert = "/v1/convert"
	RouteNow     = "/v1/now"
	RouteFeed    = "/feed.ics"

	QueryAt   = "at"
	QueryKind = "kind"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrFeedSourceEmpty = "configuration error: feed source is empty"
	ErrFetcherMissing  = "internal error: network fetcher is not initialized"
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrPortRange       = "server port must be between 1 and 65535"
	ErrKindUnsupported = "unsupported conversion kind"
	ErrLogLevelUnknown = "unsupported log level"
	ErrTimeoutInvalid  = "http timeout must be positive"
	ErrInvalidURL      = "invalid URL structure"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrVCardParse      = "failed to parse vCard stream"
	ErrICalDecode      = "failed to parse iCalendar stream"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrDateParse       = "unable to parse date"
	ErrTimestampParse  = "unable to parse timestamp"
	ErrNotConvertible  = "value cannot be represented in the Persian calendar"
	ErrConfigLoad      = "failed to load configuration file"
	ErrOpenSource      = "failed to open input source"
	ErrOpenOutput      = "failed to open output destination"
	ErrWriteOutput     = "failed to write output destination"
	ErrLogFile         = "failed to open log file"
	ErrCacheDir        = "could not determine user cache dir"
	ErrCreateDir       = "could not create app cache dir"
	ErrAppFailed       = "application failed unexpectedly"
	ErrWriteResp       = "failed to write response body"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing   = "Feed initializing, please try again shortly."
	HTTPMsgMissingAt      = "missing required query parameter: at"
	HTTPMsgBadAt          = "unparseable timestamp in query parameter: at"
	HTTPMsgBadKind        = "unsupported kind; expected utc, local, or civil"
	HTTPMsgNotConvertible = "timestamp cannot be represented in the Persian calendar"
	HTTPMsgInternalErr    = "Internal Server Error"

	// HealthStatusOK is the status value reported by the health endpoint.
	HealthStatusOK = "ok"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Feed cache updated"
	MsgWorkerStart    = "Background worker started"
	MsgWorkerStop     = "Worker stopping due to context cancellation"
	MsgFeedRefresh    = "Refreshing feed"
	MsgFeedRefreshErr = "Feed refresh failed"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedDate    = "Skipping invalid date format"
	MsgSkippedEvent   = "Skipping event without usable start date"
	MsgStampedEvent   = "Stamping event missing mandatory DTSTAMP"
	MsgAnnotated      = "Feed annotation successful"
	MsgListed         = "Birthday listing successful"
	MsgRequest        = "Request handled"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyPort      = "port"
	LogKeyKind      = "kind"
	LogKeySource    = "source"
	LogKeyInterval  = "interval"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyMethod    = "method"
	LogKeyPath      = "path"
	LogKeyDuration  = "duration_ms"

	// Annotation & Listing Stats Keys
	LogKeyCalendars = "calendars"
	LogKeyEvents    = "total_events"
	LogKeyAnnotated = "events_annotated"
	LogKeySkipped   = "events_skipped"
	LogKeyCards     = "total_cards"
	LogKeyFound     = "birthdays_found"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompFeed    = "feed"
	CompServer  = "server"
	CompFetcher = "fetcher"
	CompWorker  = "worker"
	CompMain    = "main"
)
