package models

import "time"

// InquiryStatus tracks how far an inquiry has been handled.
type InquiryStatus string

const (
	InquiryStatusNew        InquiryStatus = "NEW"
	InquiryStatusInProgress InquiryStatus = "IN_PROGRESS"
	InquiryStatusClosed     InquiryStatus = "CLOSED"
)

// Inquiry is a contact/registration form submission from the public site.
type Inquiry struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	Email     string        `db:"email" json:"email"`
	Phone     string        `db:"phone" json:"phone"`
	Subject   string        `db:"subject" json:"subject"`
	Message   string        `db:"message" json:"message"`
	Status    InquiryStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// InquiryFilter narrows inquiry listings.
type InquiryFilter struct {
	Status   InquiryStatus
	Search   string
	Page     int
	PageSize int
}
