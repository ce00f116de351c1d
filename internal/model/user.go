package model

import "time"

// Role names stored in users.role. There is no hierarchy between roles;
// protected routes declare an explicit allow-list and membership is checked
// verbatim, so ADMIN does not implicitly satisfy a SELLER-only route.
const (
	RoleBuyer   = "BUYER"
	RoleSeller  = "SELLER"
	RoleAdmin   = "ADMIN"
	RoleSupport = "SUPPORT"
)

// User represents an application user record as stored in the `users`
// table. The json tags are omitted because these structs are used
// internally by the repository layer; handlers define separate response
// types with appropriate JSON tags.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – role name (BUYER, SELLER, ADMIN, SUPPORT).
//	StoreID      – id of the store owned by a SELLER; zero when the user
//	               owns no store (users.store_id is nullable).
//	IsActive     – whether the account is active.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	StoreID      uint64    // users.store_id (nullable, zero when absent)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
