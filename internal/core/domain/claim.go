package domain

// IdentityClaim holds the registrant-declared identity the document is
// checked against. It is caller-supplied input and never mutated. A zero
// claim means there is nothing to corroborate and identity matching is
// skipped.
type IdentityClaim struct {
	FullName string `json:"full_name"`
	IDNumber string `json:"id_number,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func (c IdentityClaim) IsZero() bool {
	return c.FullName == "" && c.IDNumber == ""
}

// IdentityMatch reports how the extracted identity compared to the claim.
// Absent extractions are reportable conditions, not failures.
type IdentityMatch struct {
	NameMatched   bool
	IDMatched     bool
	ExtractedName string
	ExtractedID   string
}
