package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vtabsquare/officetool/internal/domain"
)

type clientsResponse struct {
	Clients []domain.Client `json:"clients"`
}

func (c *Client) Clients(ctx context.Context) ([]domain.Client, error) {
	var payload clientsResponse
	if err := c.get(ctx, "/clients", &payload); err != nil {
		return nil, err
	}
	return payload.Clients, nil
}

func (c *Client) CreateClient(ctx context.Context, client domain.Client) error {
	return c.post(ctx, "/clients", client, nil)
}

func (c *Client) UpdateClient(ctx context.Context, client domain.Client) error {
	return c.do(ctx, http.MethodPut, "/clients/"+url.PathEscape(client.ID), client, nil)
}

func (c *Client) DeleteClient(ctx context.Context, clientID string) error {
	return c.do(ctx, http.MethodDelete, "/clients/"+url.PathEscape(clientID), nil, nil)
}

type nextClientIDResponse struct {
	ID string `json:"id"`
}

// NextClientID asks upstream for the next auto-assigned client id.
func (c *Client) NextClientID(ctx context.Context) (string, error) {
	var payload nextClientIDResponse
	if err := c.get(ctx, "/clients/next-id", &payload); err != nil {
		return "", err
	}
	return payload.ID, nil
}
