// Package client provides the outbound HTTP client for the harvester.
//
// Built on go-resty/resty over a hashicorp/go-retryablehttp transport:
//   - Transport retries with exponential backoff for 5xx and 429
//   - Host-scoped cooldown gate: a 403/429 response pauses every request to
//     that host until the cooldown elapses, other hosts are unaffected
//   - Optional request pacing with golang.org/x/time/rate
//   - Bearer token attached only to configured hosts
//   - bytedance/sonic JSON decoding
//
// Non-2xx responses are returned as *StatusError so callers can tell a
// rate limit (IsRateLimited) from a fatal status (StatusCode).
//
// Example Usage:
//
//	c := client.NewClient(client.DefaultOptions())
//	var listing types.Listing
//	if err := c.GetJSON(ctx, folderURL, nil, &listing); err != nil {
//	    return err
//	}
package client
