package dab

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// StatusOK is forced into every successful response
const StatusOK = http.StatusOK

// ErrorResponse is the body published for a failed request
type ErrorResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// EncodeResult serializes a handler result and sets its status field to 200.
// The result must serialize to a JSON object (or null, treated as {}).
func EncodeResult(result interface{}) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	fields := map[string]json.RawMessage{}
	if string(raw) != "null" {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("result is not a JSON object: %w", err)
		}
	}

	// set last so a handler field of the same name never survives
	fields["status"] = json.RawMessage(fmt.Sprintf("%d", StatusOK))

	return json.Marshal(fields)
}

// EncodeError renders the error envelope for err
func EncodeError(err error) []byte {
	resp := ErrorResponse{
		Status: KindOf(err).Status(),
		Error:  err.Error(),
	}
	data, _ := json.Marshal(resp)
	return data
}

// Encode renders either envelope. A result that cannot be encoded becomes an internal error.
func Encode(result interface{}, err error) []byte {
	if err != nil {
		return EncodeError(err)
	}
	data, encErr := EncodeResult(result)
	if encErr != nil {
		return EncodeError(Internal("%v", encErr))
	}
	return data
}
