package usercontext

// Locals keys shared by middlewares and controllers
const (
	KeyUserContext = "USER_CONTEXT"
	KeyTokenClaims = "token_claims"
)
