package clients

import (
	"context"
	"net/http"
	"strconv"
)

// BillingClient proxies requests to billing-service.
type BillingClient struct {
	base *BaseClient
}

// NewBillingClient returns client instance.
func NewBillingClient(baseURL string, httpClient HTTPDoer) *BillingClient {
	return &BillingClient{base: NewBaseClient(baseURL, httpClient)}
}

// TransactionsForUser fetches the settled sessions of userID.
func (c *BillingClient) TransactionsForUser(ctx context.Context, userID int64, rawQuery string, headers map[string]string) (*Response, error) {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out[UserIDHeader] = strconv.FormatInt(userID, 10)
	path := "/billing/me/transactions"
	if rawQuery != "" {
		path += "?" + rawQuery
	}
	return c.base.Do(ctx, http.MethodGet, path, nil, out)
}
