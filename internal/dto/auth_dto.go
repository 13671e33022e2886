package dto

import "github.com/google/uuid"

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         UserResponse `json:"user"`
}

type UserCreateRequest struct {
	Username string     `json:"username" binding:"required,min=3,max=50"`
	Name     string     `json:"name" binding:"required,max=120"`
	Email    *string    `json:"email" binding:"omitempty,email"`
	Password string     `json:"password" binding:"required,min=8"`
	Role     string     `json:"role" binding:"required,oneof=operator supervisor admin"`
	FarmID   *uuid.UUID `json:"farm_id"`
}

type UserUpdateRequest struct {
	Name     *string    `json:"name" binding:"omitempty,max=120"`
	Email    *string    `json:"email" binding:"omitempty,email"`
	Password *string    `json:"password" binding:"omitempty,min=8"`
	Role     *string    `json:"role" binding:"omitempty,oneof=operator supervisor admin"`
	FarmID   *uuid.UUID `json:"farm_id"`
}

type UserResponse struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Name     string     `json:"name"`
	Role     string     `json:"role"`
	FarmID   *uuid.UUID `json:"farm_id,omitempty"`
	Active   bool       `json:"active"`
}
