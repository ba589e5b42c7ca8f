package collection

// Response is the received response visible to test-phase scripts.
type Response struct {
	Status       string   `json:"status"`
	Code         int      `json:"code"`
	Header       []Header `json:"header"`
	Body         string   `json:"body"`
	ResponseTime float64  `json:"responseTime"`
}

// EmptyResponse is the placeholder used when no response exists yet.
func EmptyResponse() *Response {
	return &Response{Header: []Header{}}
}
