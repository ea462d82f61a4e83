package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/logging"
)

// maxErrorBody caps how much of a failed response is kept in an APIError.
const maxErrorBody = 4096

// DecodeResponse decodes a JSON response into target and closes the body.
func DecodeResponse(ctx context.Context, resp *http.Response, endpoint string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := string(body)
		if message == "" {
			message = resp.Status
		}
		return errors.NewAPIError(endpoint, resp.StatusCode, message)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapFetch(endpoint, err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", endpoint, err)
	}
	return nil
}
