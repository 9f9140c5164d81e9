package clients

import (
	"context"
	"strconv"
)

// Identity headers understood by charging-service.
const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
)

// ChargingClient proxies charging-service endpoints on behalf of a user.
type ChargingClient struct {
	base *BaseClient
}

// NewChargingClient returns client.
func NewChargingClient(baseURL string, httpClient HTTPDoer) *ChargingClient {
	return &ChargingClient{base: NewBaseClient(baseURL, httpClient)}
}

// Forward sends method path (with query) for userID acting as role.
func (c *ChargingClient) Forward(ctx context.Context, method, path string, body []byte, userID int64, role string, headers map[string]string) (*Response, error) {
	out := make(map[string]string, len(headers)+2)
	for k, v := range headers {
		out[k] = v
	}
	out[UserIDHeader] = strconv.FormatInt(userID, 10)
	out[UserRoleHeader] = role
	return c.base.Do(ctx, method, path, body, out)
}
