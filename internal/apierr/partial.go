package apierr

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode"
)

// OperationFailure is the cause attached to one operation of a batch.
// Index is the operation's position in the submitted batch, or -1 when the
// remote response did not locate the failure.
type OperationFailure struct {
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Trigger string `json:"trigger,omitempty"`
}

func (f OperationFailure) String() string {
	if f.Index < 0 {
		return fmt.Sprintf("%s: %s", f.Code, f.Message)
	}
	return fmt.Sprintf("operation %d: %s: %s", f.Index, f.Code, f.Message)
}

// Status is the JSON error envelope used both for rejected requests and for
// the partialFailureError field of a mutate response.
type Status struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Status  string   `json:"status"`
	Details []Detail `json:"details"`
}

type Detail struct {
	Type      string        `json:"@type"`
	Errors    []VendorError `json:"errors"`
	RequestID string        `json:"requestId"`
}

type VendorError struct {
	ErrorCode map[string]string `json:"errorCode"`
	Message   string            `json:"message"`
	Trigger   *struct {
		StringValue string `json:"stringValue"`
	} `json:"trigger"`
	Location *struct {
		FieldPathElements []FieldPathElement `json:"fieldPathElements"`
	} `json:"location"`
}

type FieldPathElement struct {
	FieldName string `json:"fieldName"`
	Index     *int   `json:"index"`
}

// Code renders the vendor error code as FAMILY.VALUE, e.g.
// AUTHENTICATION_ERROR.OAUTH_TOKEN_INVALID.
func (v VendorError) Code() string {
	families := make([]string, 0, len(v.ErrorCode))
	for family := range v.ErrorCode {
		families = append(families, family)
	}
	sort.Strings(families)

	codes := make([]string, 0, len(families))
	for _, family := range families {
		codes = append(codes, upperSnake(family)+"."+v.ErrorCode[family])
	}
	return strings.Join(codes, ",")
}

// operationIndex finds the batch position the error points at.
func (v VendorError) operationIndex() int {
	if v.Location == nil {
		return -1
	}
	for _, el := range v.Location.FieldPathElements {
		switch el.FieldName {
		case "mutate_operations", "mutateOperations", "operations":
			if el.Index != nil {
				return *el.Index
			}
		}
	}
	return -1
}

// ParseFailures extracts the per-operation failures carried by st.
func ParseFailures(st *Status) []OperationFailure {
	if st == nil {
		return nil
	}
	var failures []OperationFailure
	for _, d := range st.Details {
		for _, ve := range d.Errors {
			f := OperationFailure{
				Index:   ve.operationIndex(),
				Code:    ve.Code(),
				Message: ve.Message,
			}
			if ve.Trigger != nil {
				f.Trigger = ve.Trigger.StringValue
			}
			failures = append(failures, f)
		}
	}
	if len(failures) == 0 && st.Message != "" {
		failures = append(failures, OperationFailure{Index: -1, Code: st.Status, Message: st.Message})
	}
	return failures
}

// Text joins the vendor errors as "code: message; ..." for diagnostics and
// classification.
func (st *Status) Text() string {
	if st == nil {
		return ""
	}
	var parts []string
	for _, d := range st.Details {
		for _, ve := range d.Errors {
			parts = append(parts, ve.Code()+": "+ve.Message)
		}
	}
	if len(parts) == 0 {
		if st.Status != "" {
			return st.Status + ": " + st.Message
		}
		return st.Message
	}
	return strings.Join(parts, "; ")
}

// FromStatus converts a rejected request into a whole-batch error.
func FromStatus(op string, httpStatus int, st *Status) *Error {
	msg := st.Text()
	if msg == "" {
		msg = http.StatusText(httpStatus)
	}
	e := RemoteBatch(op, msg, nil)
	if st == nil {
		return e
	}
	if st.Status != "" {
		e.Codes = append(e.Codes, st.Status)
	}
	for _, d := range st.Details {
		for _, ve := range d.Errors {
			e.Codes = append(e.Codes, ve.Code())
		}
	}
	e.Failures = ParseFailures(st)
	return e
}

func upperSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
