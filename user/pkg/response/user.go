package response

import "time"

type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type Login struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type Signup struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}
