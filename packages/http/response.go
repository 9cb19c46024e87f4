package http

import (
	"bytes"
	"time"
)

type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
	URL        string
}

// IsNullBody reports whether the body is the JSON literal null.
func (r *Response) IsNullBody() bool {
	return bytes.Equal(bytes.TrimSpace(r.Body), []byte("null"))
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
