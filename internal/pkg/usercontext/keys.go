package usercontext

// Locals keys shared by middlewares and controllers
const (
	KeyUserContext = "USER_CONTEXT"
	KeyUserID      = "user_id"
)

// Roles carried in the access token
const (
	RoleLearner = "learner"
	RoleScholar = "scholar"
	RoleAdmin   = "admin"
)
