package site

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
)

// InquiryStatus represents the handling state of an inquiry
type InquiryStatus string

const (
	InquiryStatusNew        InquiryStatus = "new"
	InquiryStatusProcessing InquiryStatus = "processing"
	InquiryStatusClosed     InquiryStatus = "closed"
)

// IsValid checks if the status is valid
func (s InquiryStatus) IsValid() bool {
	switch s {
	case InquiryStatusNew, InquiryStatusProcessing, InquiryStatusClosed:
		return true
	}
	return false
}

// Inquiry is a buyer message captured from the public site.
// Only Status changes after creation, and inquiries are never deleted.
type Inquiry struct {
	ID        string        `json:"id" validate:"required,shardkey"`
	ProductID string        `json:"productId,omitempty" validate:"omitempty,shardkey"`
	Name      string        `json:"name" validate:"required,max=200"`
	Email     string        `json:"email" validate:"required,email"`
	Phone     string        `json:"phone,omitempty"`
	Company   string        `json:"company,omitempty"`
	Country   string        `json:"country,omitempty"`
	Message   string        `json:"message" validate:"required,max=5000"`
	Quantity  *int          `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Locale    string        `json:"locale,omitempty" validate:"omitempty,locale"`
	CreatedAt time.Time     `json:"createdAt"`
	Status    InquiryStatus `json:"status" validate:"oneof=new processing closed"`
}

// InquiryInput is the caller-provided part of an inquiry
type InquiryInput struct {
	ProductID string `json:"productId,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	Country   string `json:"country,omitempty"`
	Message   string `json:"message"`
	Quantity  *int   `json:"quantity,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

// NewInquiry creates a validated inquiry with a fresh id and status new
func NewInquiry(in InquiryInput, now time.Time) (Inquiry, error) {
	inq := Inquiry{
		ID:        uuid.New().String(),
		ProductID: in.ProductID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Company:   in.Company,
		Country:   in.Country,
		Message:   in.Message,
		Quantity:  in.Quantity,
		Locale:    in.Locale,
		CreatedAt: now,
		Status:    InquiryStatusNew,
	}
	if err := inq.Validate(); err != nil {
		return Inquiry{}, err
	}
	return inq, nil
}

// Clone returns a copy of i that shares no pointers with it
func (i Inquiry) Clone() Inquiry {
	if i.Quantity != nil {
		q := *i.Quantity
		i.Quantity = &q
	}
	return i
}

// CloneInquiries copies a list of inquiries
func CloneInquiries(in []Inquiry) []Inquiry {
	return cloneSlice(in, Inquiry.Clone)
}

// SortInquiries orders inquiries newest first; ties keep a stable id order
func SortInquiries(list []Inquiry) {
	slices.SortStableFunc(list, func(a, b Inquiry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// IndexOfInquiry returns the position of id in list, or -1
func IndexOfInquiry(list []Inquiry, id string) int {
	return slices.IndexFunc(list, func(i Inquiry) bool { return i.ID == id })
}
