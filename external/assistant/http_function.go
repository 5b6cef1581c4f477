package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kavya5cloud/studyroom/external/httpjson"
	"github.com/kavya5cloud/studyroom/internal/assistant"
)

type functionRequest struct {
	Message string `json:"message"`
}

type functionResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error"`
}

// HTTPFunction calls a serverless chat function: POST {"message"} answered by {"reply"} or
// {"error"}.
type HTTPFunction struct {
	functionURL string
	poster      *httpjson.Client
}

func NewHTTPFunction(functionURL string, timeout time.Duration) assistant.Completer {
	return &HTTPFunction{
		functionURL: functionURL,
		poster:      httpjson.NewClient(timeout),
	}
}

func (f *HTTPFunction) Complete(ctx context.Context, message string) (string, error) {
	body, err := f.poster.Post(ctx, f.functionURL, functionRequest{Message: message})
	var out functionResponse
	var statusErr *httpjson.StatusError
	switch {
	case errors.As(err, &statusErr):
		if json.Unmarshal(body, &out) == nil && out.Error != "" {
			return "", fmt.Errorf("function returned status %d: %s", statusErr.StatusCode, out.Error)
		}
		return "", fmt.Errorf("function returned status %d", statusErr.StatusCode)
	case err != nil:
		return "", err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode function response: %w", err)
	}
	if out.Error != "" {
		return "", errors.New(out.Error)
	}
	return out.Reply, nil
}
