package constants

// Canned API responses
const (
	NotFound         = "{\"message\":\"Not found\"}"
	NotFoundPage     = "{\"message\":\"No such endpoint\"}"
	BadRequest       = "{\"message\":\"Bad request\"}"
	InternalError    = "{\"message\":\"Something went wrong on our end\"}"
	MethodNotAllowed = "{\"message\":\"Method not allowed for this endpoint\"}"
	Success          = "{\"message\":\"Success\"}"
)
