package types

// This represents a tnctl API Error
type ApiError struct {
	Context map[string]string `json:"context,omitempty" description:"Context of the error. Usually used for validation error contexts"`
	Message string            `json:"message" description:"Message of the error"`
}

// Response of the changelog lint endpoint
type LintReport struct {
	OK       bool      `json:"ok" description:"Whether the manifest is free of problems"`
	Problems []Problem `json:"problems" description:"The problems found, if any"`
}

// Paged result common
type PagedResult[T any] struct {
	Count   uint64 `json:"count"`
	PerPage uint64 `json:"per_page"`
	Results T      `json:"results"`
}

// A release record along with its version
type ReleaseResponse struct {
	Version string   `json:"version" description:"The release version"`
	Release *Release `json:"release" description:"The release record"`
}
