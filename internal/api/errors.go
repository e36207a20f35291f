package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-success backend response. Detail holds the raw `detail`
// payload when the body followed the backend's error envelope.
type APIError struct {
	Status  int
	Message string
	Detail  json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// newAPIError parses the backend's error envelope {"detail": ...}, where
// detail is either a plain string or an object with a message field.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		Status:  status,
		Message: http.StatusText(status),
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return apiErr
	}
	apiErr.Detail = envelope.Detail

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		apiErr.Message = s
		return apiErr
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Detail, &obj); err == nil && obj.Message != "" {
		apiErr.Message = obj.Message
	}
	return apiErr
}

// IsNotFound reports whether err is a backend not-found response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// ExistingUser extracts the already-registered identity from a create-user
// conflict. The backend signals this case with a 401 whose detail object
// embeds the numeric user id; an unusual convention, but a documented one.
func ExistingUser(err error) (User, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return User{}, false
	}

	var detail struct {
		UserID *int64  `json:"user_id"`
		Name   *string `json:"name"`
	}
	if unmarshalErr := json.Unmarshal(apiErr.Detail, &detail); unmarshalErr != nil || detail.UserID == nil {
		return User{}, false
	}

	u := User{ID: *detail.UserID}
	if detail.Name != nil {
		u.Name = *detail.Name
	}
	return u, true
}
