package config

import "fmt"

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserRoleKey returns the cache key for the role assigned to a user
func (r *CacheKeyStruct) UserRoleKey(userID string) string {
	return fmt.Sprintf("role:user:%s", userID)
}

// RoleByNameKey returns the cache key for a role record looked up by name
func (r *CacheKeyStruct) RoleByNameKey(name string) string {
	return fmt.Sprintf("role:name:%s", name)
}

// RolePattern matches every role cache key
func (r *CacheKeyStruct) RolePattern() string {
	return "role:*"
}

// RevokedSessionKey returns the key marking a session token as revoked
func (r *CacheKeyStruct) RevokedSessionKey(jti string) string {
	return fmt.Sprintf("session:revoked:%s", jti)
}

var CacheKey = NewCacheKeyStruct()
