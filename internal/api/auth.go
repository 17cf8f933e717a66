package api

import (
	"context"

	"github.com/vtabsquare/officetool/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User domain.User `json:"user"`
}

// Authenticate verifies credentials upstream and returns the portal user
// with their role flags.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	var payload loginResponse
	if err := c.post(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &payload); err != nil {
		return nil, err
	}
	user := payload.User
	user.ID = domain.NormalizeEmployeeID(user.ID)
	return &user, nil
}
