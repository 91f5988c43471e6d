package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey          = "authenticated"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyPiUID         = "pi_uid"
	KeyPlan          = "user_plan"
	KeyIsAdmin       = "isAdmin"
	KeyFromProtected = "from_protected"
)
