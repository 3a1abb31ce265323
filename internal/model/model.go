package model

import "time"

// Contact is the data structure for a person that a user knows. Every contact belongs to exactly
// one owner, the user who created it. Optional fields are nil when they were never set.
type Contact struct {
	Id        string    `json:"id"              db:"id"`
	Owner     string    `json:"owner"           db:"owner"`
	Name      string    `json:"name"            db:"name"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Type      *string   `json:"type,omitempty"  db:"type"`
	CreatedAt time.Time `json:"createdAt"       db:"created_at"`
}

// OwnedBy reports whether the contact belongs to the given user.
func (c Contact) OwnedBy(user string) bool {
	return c.Owner == user
}

// ContactInput is the request body for creating a contact. The owner is never taken from the
// request; it is always the authenticated caller.
type ContactInput struct {
	Name  string  `json:"name"  binding:"required,notblank"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Type  *string `json:"type"`
}

// NewContact turns validated input into a contact owned by owner. Empty optional values are
// treated as absent.
func (in ContactInput) NewContact(owner string, createdAt time.Time) Contact {
	return Contact{
		Owner:     owner,
		Name:      in.Name,
		Email:     nonEmpty(in.Email),
		Phone:     nonEmpty(in.Phone),
		Type:      nonEmpty(in.Type),
		CreatedAt: createdAt,
	}
}

// ContactUpdate is the request body for updating a contact. Only fields with a non-empty value
// are applied, so a stored value can not be cleared with an empty string.
type ContactUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Type  string `json:"type"`
}

// Field is a single column/value pair of a partial update. Name doubles as the SQL column and
// the document key.
type Field struct {
	Name  string
	Value string
}

// Fields returns the values to be applied, in a stable order.
func (u ContactUpdate) Fields() []Field {
	var fields []Field
	for _, f := range []Field{
		{"name", u.Name},
		{"email", u.Email},
		{"phone", u.Phone},
		{"type", u.Type},
	} {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// IsEmpty reports whether the update would not change anything.
func (u ContactUpdate) IsEmpty() bool {
	return len(u.Fields()) == 0
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
