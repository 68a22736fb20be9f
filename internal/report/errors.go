package report

import (
	"errors"
	"fmt"
)

var ErrIssueNotFound = errors.New("issue not found in report")

// MissingRequiredFieldError is returned when a raw issue lacks one of the fields every
// record needs: id, key, status or issue type.
type MissingRequiredFieldError struct {
	Field   string
	IssueID string
}

func (e *MissingRequiredFieldError) Error() string {
	if e.IssueID == "" {
		return fmt.Sprintf("normalizing issue: missing required field %q", e.Field)
	}
	return fmt.Sprintf("normalizing issue %s: missing required field %q", e.IssueID, e.Field)
}
