package apierr

import (
	"errors"
	"strings"
)

type Category string

const (
	CategoryAuthentication Category = "authentication"
	CategoryAuthorization  Category = "authorization"
	CategoryQuota          Category = "quota"
	CategoryRateLimit      Category = "rate_limit"
	CategoryNotFound       Category = "not_found"
	CategoryPolicy         Category = "policy_violation"
	CategoryDuplicate      Category = "duplicate"
	CategoryFieldLength    Category = "field_length"
	CategoryValidation     Category = "validation"
	CategoryUnknown        Category = "unknown"
)

// Transient reports whether waiting and retrying can succeed without
// changing the request.
func (c Category) Transient() bool {
	return c == CategoryRateLimit || c == CategoryQuota
}

type rule struct {
	category Category
	needles  []string
	message  string
}

// Order matters: the first rule with a matching needle wins.
var vocabulary = []rule{
	{
		category: CategoryRateLimit,
		needles:  []string{"RESOURCE_TEMPORARILY_EXHAUSTED", "RATE_EXCEEDED", "TOO_MANY_REQUESTS", "rate limit"},
		message:  "Rate limit reached. Wait a few seconds and retry with fewer concurrent requests.",
	},
	{
		category: CategoryQuota,
		needles:  []string{"RESOURCE_EXHAUSTED", "QUOTA"},
		message:  "API quota exhausted. Retry after the quota window resets or request a higher access level.",
	},
	{
		category: CategoryAuthentication,
		needles:  []string{"AUTHENTICATION_ERROR", "UNAUTHENTICATED", "OAUTH_TOKEN", "INVALID_GRANT", "INVALID_CLIENT"},
		message:  "Authentication failed. Check the OAuth client credentials and refresh token, then retry.",
	},
	{
		category: CategoryAuthorization,
		needles:  []string{"AUTHORIZATION_ERROR", "PERMISSION_DENIED", "DEVELOPER_TOKEN", "CUSTOMER_NOT_ENABLED"},
		message:  "Permission denied. Confirm the login customer manages this account and the developer token is approved.",
	},
	{
		category: CategoryNotFound,
		needles:  []string{"NOT_FOUND"},
		message:  "Resource not found. Verify the customer id and the resource ids in the request.",
	},
	{
		category: CategoryPolicy,
		needles:  []string{"POLICY_VIOLATION", "POLICY_FINDING", "PROHIBITED"},
		message:  "Rejected by advertising policy. Review the ad text and destination for policy violations.",
	},
	{
		category: CategoryDuplicate,
		needles:  []string{"DUPLICATE", "ALREADY_EXISTS"},
		message:  "A resource with the same name already exists. Choose a unique name.",
	},
	{
		category: CategoryFieldLength,
		needles:  []string{"TOO_LONG", "TOO_SHORT", "STRING_LENGTH"},
		message:  "A text field is outside its allowed length. Shorten the value and retry.",
	},
	{
		category: CategoryValidation,
		needles:  []string{"INVALID_ARGUMENT", "FIELD_ERROR", "REQUIRED", "INVALID"},
		message:  "The request was rejected as invalid. Check the field values.",
	},
}

// Classify maps err to a category and a user-facing message. It is a pure
// function of the error's kind and text.
func Classify(err error) (Category, string) {
	if err == nil {
		return CategoryUnknown, ""
	}
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindLocalValidation:
			return CategoryValidation, "Invalid request: " + e.Message
		case KindConnectorInit:
			return CategoryAuthentication, "Could not connect to the advertising API. " + authMessage() + " (" + err.Error() + ")"
		}
		if len(e.Codes) > 0 {
			return ClassifyText(strings.Join(e.Codes, " ") + " " + err.Error())
		}
	}
	return ClassifyText(err.Error())
}

// ClassifyText performs case-insensitive matching of raw against the fixed
// vocabulary of remote error codes.
func ClassifyText(raw string) (Category, string) {
	upper := strings.ToUpper(raw)
	for _, r := range vocabulary {
		for _, needle := range r.needles {
			if strings.Contains(upper, strings.ToUpper(needle)) {
				return r.category, r.message
			}
		}
	}
	return CategoryUnknown, "Unexpected API error: " + raw
}

func authMessage() string {
	for _, r := range vocabulary {
		if r.category == CategoryAuthentication {
			return r.message
		}
	}
	return ""
}
