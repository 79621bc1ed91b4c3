package model

import "time"

// User is the durable identity record owned by the user store. The password
// hash never crosses the repository boundary in responses; handlers work with
// UserDTO instead.
type User struct {
	ID                  int64      `json:"id"`
	Email               string     `json:"email"`
	FullName            string     `json:"full_name"`
	PhoneNumber         string     `json:"phone_number"`
	PasswordHash        string     `json:"-"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type UserDTO struct {
	ID          int64  `json:"id"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

func (u User) DTO() UserDTO {
	return UserDTO{
		ID:          u.ID,
		FullName:    u.FullName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
	}
}

// RoleUser is assigned to every identity at registration.
const RoleUser = "User"

// RoleAdmin gates the audit listing endpoint.
const RoleAdmin = "Admin"
