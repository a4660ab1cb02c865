package transport

import "contacts_backend/internal/contacts/domain"

// AddContactRequest contains data for creating a new contact.
type AddContactRequest struct {
	Name  string `json:"name" validate:"omitempty,max=200"`
	Phone string `json:"phone" validate:"required,max=40"`
}

// EditNameRequest contains the replacement name for a contact.
type EditNameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// SetTemperatureRequest contains the new temperature classification.
type SetTemperatureRequest struct {
	Temperature string `json:"temperature" validate:"required,oneof=cold warm hot"`
}

// BatchTemperatureRequest applies one temperature to a set of contacts.
type BatchTemperatureRequest struct {
	IDs         []string `json:"ids" validate:"required,min=1,dive,required"`
	Temperature string   `json:"temperature" validate:"required,oneof=cold warm hot"`
}

// SetConsultantRequest assigns a consultant, per contact or globally.
type SetConsultantRequest struct {
	Consultant string `json:"consultant" validate:"required,min=1,max=100"`
}

// ContactResponse represents a contact in API responses.
type ContactResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	RegionCode  string `json:"regionCode"`
	Contacted   bool   `json:"contacted"`
	Temperature string `json:"temperature"`
	Consultant  string `json:"consultant"`
}

// ContactListResponse is the filtered collection view plus the derived
// counters the operator screen renders.
type ContactListResponse struct {
	Items             []ContactResponse `json:"items"`
	Total             int               `json:"total"`
	ContactedCount    int               `json:"contactedCount"`
	TemperatureCounts map[string]int    `json:"temperatureCounts"`
	Regions           []string          `json:"regions"`
	SelectedIDs       []string          `json:"selectedIds"`
	ActiveConsultant  string            `json:"activeConsultant"`
}

// SelectionResponse reports the selection set after a selection mutation.
type SelectionResponse struct {
	SelectedIDs []string `json:"selectedIds"`
	Count       int      `json:"count"`
}

// BatchResponse reports how many contacts a batch operation touched.
type BatchResponse struct {
	Matched int `json:"matched"`
}

// ExportResponse carries a newline-joined clipboard payload.
type ExportResponse struct {
	Payload string `json:"payload"`
	Count   int    `json:"count"`
}

// LinkResponse carries a composed outreach link.
type LinkResponse struct {
	Link     string `json:"link"`
	Greeting string `json:"greeting"`
}

// ConsultantsResponse lists the roster and the active consultant.
type ConsultantsResponse struct {
	Consultants []string `json:"consultants"`
	Active      string   `json:"active"`
}

// ResetResponse reports the collection size after a reset re-import.
type ResetResponse struct {
	Total int `json:"total"`
}

// ToContactResponse maps a domain contact to its API representation.
func ToContactResponse(c domain.Contact) ContactResponse {
	return ContactResponse{
		ID:          c.ID,
		Name:        c.Name,
		Phone:       c.Phone,
		RegionCode:  c.RegionCode,
		Contacted:   c.Contacted,
		Temperature: string(c.Temperature),
		Consultant:  c.Consultant,
	}
}

// ToContactResponses maps a slice of domain contacts.
func ToContactResponses(contacts []domain.Contact) []ContactResponse {
	out := make([]ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, ToContactResponse(c))
	}
	return out
}
