package request

type Login struct {
	Username string `validate:"required" json:"username"`
	Password string `validate:"required" json:"pwd"`
}

type Signup struct {
	Name     string `validate:"required"        json:"name"`
	Mobile   string `validate:"required,mobile" json:"mobile"`
	Username string `validate:"required"        json:"username"`
	Password string `validate:"required"        json:"pwd"`
	Role     string `validate:"omitempty,oneof=user admin" json:"role"`
}
