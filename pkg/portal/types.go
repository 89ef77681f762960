package portal

import (
	"encoding/json"
	"io"
)

// SessionResponse is the body of GET /session/{id}.
type SessionResponse struct {
	Found   bool            `json:"found"`
	Error   bool            `json:"error"`
	Message string          `json:"message,omitempty"`
	Report  json.RawMessage `json:"report,omitempty"`
	Filter  string          `json:"filter,omitempty"`
	Format  string          `json:"format,omitempty"`
	Jobs    []SessionJob    `json:"jobs,omitempty"`
}

// SessionJob is one previously submitted job of a session.
type SessionJob struct {
	ID        string `json:"id"`
	InputFile string `json:"inputFile"`
}

// Schema is the body of GET /schema.
type Schema struct {
	IsError  bool     `json:"isError"`
	Message  string   `json:"message,omitempty"`
	ColNames []string `json:"col_names,omitempty"`
}

// Status is the body of GET /status/{id}.
//
// Completed is terminal: once true, the job is no longer polled. Succeeded
// gates the result download. SnagMessages are non-fatal warnings reported
// regardless of success.
type Status struct {
	Message      string   `json:"message"`
	Succeeded    bool     `json:"succeeded"`
	Completed    bool     `json:"completed"`
	SnagMessages []string `json:"snagMessages"`
}

// UploadRequest is one multipart POST /upload.
type UploadRequest struct {
	Filter   string
	Format   string
	Session  string
	Genome   string
	Email    string
	FileName string

	// Open returns the input file body. It is called once per upload.
	Open func() (io.ReadCloser, error)
}
