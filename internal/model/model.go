package model

import "time"

// DateLayout is the wire format for calendar dates (dateOfBirth, registeredDate).
const DateLayout = "2006-01-02"

type Patient struct {
	ID             string
	Name           string
	Email          string
	Address        string
	DateOfBirth    time.Time
	RegisteredDate time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
