// Package models defines data structures used throughout the study tracking application.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// User represents a user in the system
type User struct {
	ID              int            `json:"id" yaml:"id"`
	Username        string         `json:"username" yaml:"username"`
	Email           sql.NullString `json:"email" yaml:"email"`
	PasswordHash    sql.NullString `json:"-" yaml:"-"` // Omit from JSON responses
	ProfileImageURL sql.NullString `json:"profile_image_url" yaml:"profile_image_url"`
	IsVerified      bool           `json:"is_verified" yaml:"is_verified"`
	IsAdmin         bool           `json:"is_admin" yaml:"is_admin"`
	LastActive      sql.NullTime   `json:"last_active" yaml:"last_active"`
	CreatedAt       time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" yaml:"updated_at"`
}

// MarshalJSON customizes JSON marshaling for User to handle sql.NullString and sql.NullTime properly
func (u User) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID              int        `json:"id"`
		Username        string     `json:"username"`
		Email           *string    `json:"email"`
		ProfileImageURL *string    `json:"profile_image_url"`
		IsVerified      bool       `json:"is_verified"`
		IsAdmin         bool       `json:"is_admin"`
		LastActive      *time.Time `json:"last_active"`
		CreatedAt       time.Time  `json:"created_at"`
		UpdatedAt       time.Time  `json:"updated_at"`
	}{
		ID:              u.ID,
		Username:        u.Username,
		Email:           nullStringToPointer(u.Email),
		ProfileImageURL: nullStringToPointer(u.ProfileImageURL),
		IsVerified:      u.IsVerified,
		IsAdmin:         u.IsAdmin,
		LastActive:      nullTimeToPointer(u.LastActive),
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	})
}

// Helper functions for converting sql.Null types to pointers
func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

func nullInt32ToPointer(ni sql.NullInt32) *int32 {
	if ni.Valid {
		return &ni.Int32
	}
	return nil
}

func nullFloat64ToPointer(nf sql.NullFloat64) *float64 {
	if nf.Valid {
		return &nf.Float64
	}
	return nil
}
