package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const problemTypeBase = "https://developer.mozilla.org/en-US/docs/Web/HTTP/Status/"

// Problem is an RFC 9457 problem document.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// WriteProblem writes a problem document. An empty title falls back to the
// status text.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	if title == "" {
		title = http.StatusText(status)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:   problemTypeBase + strconv.Itoa(status),
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
