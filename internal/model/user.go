// Package model defines the data structures shared by the store, the
// services and the HTTP layer.
package model

import "time"

// User is a registered account. Username is the primary key and the
// identity carried in access tokens; Email is unique as well.
//
// PasswordHash is opaque outside the auth package and never serialised.
type User struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Bio          string    `json:"bio"`
	Image        string    `json:"image"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the public view of a User as seen by a particular viewer.
// Following is computed from the follow edges at read time.
type Profile struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}
