package backend

import "fmt"

// ConnectionError means the remote service is unreachable or the client
// configuration is incomplete. Fatal for anything built on the client.
type ConnectionError struct {
	Reason string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("remote service connection failed: %s", e.Reason)
}

// RequestError wraps a single failed read or write against one collection.
// The provider message is carried verbatim and always propagated to the caller.
type RequestError struct {
	Table   string
	Op      string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s on %s failed: %s", e.Op, e.Table, e.Message)
}

// NotFoundError means a row that was required to exist does not.
type NotFoundError struct {
	Table string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s row %s not found", e.Table, e.ID)
}

// DataIntegrityError means a lookup by unique id returned more than one row.
type DataIntegrityError struct {
	Table string
	ID    string
	Count int
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s row %s returned %d rows, expected exactly one", e.Table, e.ID, e.Count)
}
