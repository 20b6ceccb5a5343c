// Package lambdaio holds the response envelope shared by the Lambda functions.
package lambdaio

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is the {statusCode, body} document returned by every function.
// Body is itself a JSON document encoded as a string.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// OK encodes body as the JSON string of a 200 response
func OK(body any) (Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode response body: %w", err)
	}
	return Response{StatusCode: http.StatusOK, Body: string(raw)}, nil
}
