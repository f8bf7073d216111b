package backend

import (
	"context"
	"net/http"

	"github.com/expressofrete/portal/internal/session"
)

// PathDriverUpdate is the endpoint appending a tracking event to a shipment.
const PathDriverUpdate = "/api/driver/update"

// UpdateDriverStatus appends a tracking event. No session token is sent:
// the capability pair inside upd is the whole authorisation.
func (c *Client) UpdateDriverStatus(ctx context.Context, upd DriverUpdate) error {
	return c.requestJSON(ctx, http.MethodPost, PathDriverUpdate, upd, session.KindNone, nil)
}
