package entity

import "time"

// Employee represents an insured member
type Employee struct {
	ID            int64     `json:"id"`
	NationalCode  string    `json:"national_code"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	PersonnelCode string    `json:"personnel_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// FullName returns first and last name joined
func (e *Employee) FullName() string {
	if e.FirstName == "" {
		return e.LastName
	}
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// User is a back-office operator that actions are attributed to
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentType classifies claim attachments
type DocumentType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
