package backend

import (
	"context"
	"net/http"
	"strconv"

	"github.com/expressofrete/portal/internal/session"
)

// ListCollections returns every pickup, newest first as the API orders them.
func (c *Client) ListCollections(ctx context.Context) ([]Coleta, error) {
	var coletas []Coleta
	if err := c.requestJSON(ctx, http.MethodGet, "/api/admin/coletas", nil, session.KindAdmin, &coletas); err != nil {
		return nil, err
	}
	if coletas == nil {
		coletas = []Coleta{}
	}
	return coletas, nil
}

// UpdateCollectionStatus sets the status of a pickup.
func (c *Client) UpdateCollectionStatus(ctx context.Context, id int64, status string) error {
	path := "/api/admin/coletas/" + strconv.FormatInt(id, 10) + "/status"
	return c.requestJSON(ctx, http.MethodPut, path, StatusChange{Status: status}, session.KindAdmin, nil)
}

// ListReturns returns every return request.
func (c *Client) ListReturns(ctx context.Context) ([]Devolucao, error) {
	var devolucoes []Devolucao
	if err := c.requestJSON(ctx, http.MethodGet, "/api/admin/devolucoes", nil, session.KindAdmin, &devolucoes); err != nil {
		return nil, err
	}
	if devolucoes == nil {
		devolucoes = []Devolucao{}
	}
	return devolucoes, nil
}

// ListClients returns every client account.
func (c *Client) ListClients(ctx context.Context) ([]Cliente, error) {
	var clientes []Cliente
	if err := c.requestJSON(ctx, http.MethodGet, "/api/admin/clientes", nil, session.KindAdmin, &clientes); err != nil {
		return nil, err
	}
	if clientes == nil {
		clientes = []Cliente{}
	}
	return clientes, nil
}

// ListEmployees returns every staff member.
func (c *Client) ListEmployees(ctx context.Context) ([]Funcionario, error) {
	var funcionarios []Funcionario
	if err := c.requestJSON(ctx, http.MethodGet, "/api/admin/funcionarios", nil, session.KindAdmin, &funcionarios); err != nil {
		return nil, err
	}
	if funcionarios == nil {
		funcionarios = []Funcionario{}
	}
	return funcionarios, nil
}

// CreateEmployee adds a staff member.
func (c *Client) CreateEmployee(ctx context.Context, emp NewEmployee) (*Funcionario, error) {
	var funcionario Funcionario
	if err := c.requestJSON(ctx, http.MethodPost, "/api/admin/funcionarios", emp, session.KindAdmin, &funcionario); err != nil {
		return nil, err
	}
	return &funcionario, nil
}

// CollectionLabel downloads the shipping label PDF of a pickup.
func (c *Client) CollectionLabel(ctx context.Context, id int64) (*Blob, error) {
	path := "/api/admin/coletas/" + strconv.FormatInt(id, 10) + "/etiqueta"
	return c.RequestBlob(ctx, http.MethodGet, path, nil, session.KindAdmin)
}

// CollectionInvoice downloads the invoice PDF of a pickup.
func (c *Client) CollectionInvoice(ctx context.Context, id int64) (*Blob, error) {
	path := "/api/admin/coletas/" + strconv.FormatInt(id, 10) + "/fatura"
	return c.RequestBlob(ctx, http.MethodGet, path, nil, session.KindAdmin)
}
