// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/userhub/userhub/internal/model"
)

// CreateUserRequest represents the request body for creating a user.
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateUserRequest represents the request body for a partial update.
// An empty field keeps the current value.
type UpdateUserRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// UserListResponse represents a list of users.
type UserListResponse struct {
	Data  []*UserResponse `json:"data"`
	Count int             `json:"count"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToUserResponse converts a User model to a UserResponse DTO.
func ToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// ToUserListResponse converts a slice of users to a list response.
func ToUserListResponse(users []*model.User) *UserListResponse {
	data := make([]*UserResponse, 0, len(users))
	for _, user := range users {
		data = append(data, ToUserResponse(user))
	}
	return &UserListResponse{Data: data, Count: len(data)}
}

// ProjectUser reduces a user to the requested fields. Unknown field names
// are ignored; an empty selection returns every field.
func ProjectUser(user *model.User, fields []string) map[string]any {
	full := map[string]any{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}
	if len(fields) == 0 {
		return full
	}

	out := make(map[string]any, len(fields))
	for _, field := range fields {
		if v, ok := full[field]; ok {
			out[field] = v
		}
	}
	return out
}
