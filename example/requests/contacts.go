package requests

// CreateContactRequest is the body for creating a contact.
type CreateContactRequest struct {
	Name  string `json:"name"  validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
}
