package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/expressofrete/portal/internal/session"
)

// ListMyShipments returns the pickups of the logged-in client.
func (c *Client) ListMyShipments(ctx context.Context) ([]Coleta, error) {
	var coletas []Coleta
	if err := c.requestJSON(ctx, http.MethodGet, "/api/cliente/minhas-coletas", nil, session.KindClient, &coletas); err != nil {
		return nil, err
	}
	if coletas == nil {
		coletas = []Coleta{}
	}
	return coletas, nil
}

// RequestPickup schedules a new pickup for the logged-in client.
func (c *Client) RequestPickup(ctx context.Context, req PickupRequest) (*Coleta, error) {
	var coleta Coleta
	if err := c.requestJSON(ctx, http.MethodPost, "/api/cliente/coletas", req, session.KindClient, &coleta); err != nil {
		return nil, err
	}
	return &coleta, nil
}

// RequestReturn opens a return for one of the client's shipments.
func (c *Client) RequestReturn(ctx context.Context, req ReturnRequest) (*Devolucao, error) {
	var devolucao Devolucao
	if err := c.requestJSON(ctx, http.MethodPost, "/api/cliente/devolucoes", req, session.KindClient, &devolucao); err != nil {
		return nil, err
	}
	return &devolucao, nil
}

// ClientInvoice downloads the invoice PDF of one of the client's shipments.
func (c *Client) ClientInvoice(ctx context.Context, numeroEncomenda string) (*Blob, error) {
	path := "/api/cliente/coletas/" + url.PathEscape(numeroEncomenda) + "/fatura"
	return c.RequestBlob(ctx, http.MethodGet, path, nil, session.KindClient)
}

// TrackShipment looks a shipment up by number. No session is needed.
func (c *Client) TrackShipment(ctx context.Context, numeroEncomenda string) (*Coleta, error) {
	var coleta Coleta
	path := "/api/rastreio/" + url.PathEscape(numeroEncomenda)
	if err := c.requestJSON(ctx, http.MethodGet, path, nil, session.KindNone, &coleta); err != nil {
		return nil, err
	}
	return &coleta, nil
}
