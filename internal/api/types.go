package api

// TitleRequest is the body of POST /title. Omitted overrides use the server
// defaults.
type TitleRequest struct {
	Text              string   `json:"text"`
	Sentences         *int     `json:"sentences,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	TopP              *float32 `json:"top_p,omitempty"`
	RepetitionPenalty *float32 `json:"repetition_penalty,omitempty"`
	Seed              *int64   `json:"seed,omitempty"`
}

type TitleResponse struct {
	Title []string `json:"title"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
