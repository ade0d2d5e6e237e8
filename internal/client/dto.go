package client

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}
