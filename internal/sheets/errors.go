package sheets

import "errors"

// AppendError reports a failed batch write. Remote carries the spreadsheet
// service's error text verbatim; the whole batch either succeeded or failed,
// no partial-row retry is attempted.
type AppendError struct {
	Remote string
}

func (e *AppendError) Error() string {
	return "append rejected by spreadsheet service: " + e.Remote
}

// IsAppendError reports whether err is (or wraps) an AppendError.
func IsAppendError(err error) bool {
	var ae *AppendError
	return errors.As(err, &ae)
}
