package constants

// Middleware transports, selected with the middleware_method environment variable
const (
	MethodMidclt    = "midclt"
	MethodClient    = "client"
	MethodWebsocket = "websocket"
)

const (
	MidcltCmd = "midclt"

	// Local middlewared socket, used by the "client" method
	MiddlewareSocket = "/var/run/middleware/middlewared.sock"

	// Websocket endpoints, tried in this order
	APIPathCurrent = "/api/current"
	APIPathLegacy  = "/websocket"
)

// Job states reported by core.get_jobs
const (
	JobStateWaiting = "WAITING"
	JobStateRunning = "RUNNING"
	JobStateSuccess = "SUCCESS"
	JobStateFailed  = "FAILED"
	JobStateAborted = "ABORTED"
)

// Changelog categories, in the order antsibull-changelog renders them
const (
	CategoryReleaseSummary     = "release_summary"
	CategoryBreakingChanges    = "breaking_changes"
	CategoryMajorChanges       = "major_changes"
	CategoryMinorChanges       = "minor_changes"
	CategoryRemovedFeatures    = "removed_features"
	CategoryDeprecatedFeatures = "deprecated_features"
	CategorySecurityFixes      = "security_fixes"
	CategoryBugfixes           = "bugfixes"
	CategoryKnownIssues        = "known_issues"
	CategoryTrivial            = "trivial"
)

var DefaultSections = [][2]string{
	{CategoryReleaseSummary, "Release Summary"},
	{CategoryMajorChanges, "Major Changes"},
	{CategoryMinorChanges, "Minor Changes"},
	{CategoryBreakingChanges, "Breaking Changes / Porting Guide"},
	{CategoryDeprecatedFeatures, "Deprecated Features"},
	{CategoryRemovedFeatures, "Removed Features (previously deprecated)"},
	{CategorySecurityFixes, "Security Fixes"},
	{CategoryBugfixes, "Bugfixes"},
	{CategoryKnownIssues, "Known Issues"},
	{CategoryTrivial, "Trivial Changes"},
}

const DateLayout = "2006-01-02"

// Read by every command unless -config says otherwise. It may be absent.
const DefaultConfigFile = "tnctl.yaml"
