package repository

import "github.com/Alturino/storefront/user/pkg/response"

func (u User) Response() response.User {
	return response.User{
		ID:        u.ID.String(),
		Name:      u.Name,
		Mobile:    u.Mobile,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.Time,
	}
}
