package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"contacts_backend/internal/contacts/service"
	"contacts_backend/internal/contacts/transport"
	"contacts_backend/platform/httpkit"
	"contacts_backend/platform/validator"
)

// Handler handles HTTP requests for the contact collection.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// New creates a new contacts handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves the filtered collection view.
// GET /api/v1/contacts?region=11&temperatures=hot,warm
func (h *Handler) List(c *gin.Context) {
	temperatures, temperaturesSet := c.GetQuery("temperatures")

	result, err := h.svc.List(c.Query("region"), temperatures, temperaturesSet)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Add creates a new contact.
// POST /api/v1/contacts
func (h *Handler) Add(c *gin.Context) {
	var req transport.AddContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	httpkit.JSON(c, http.StatusCreated, h.svc.Add(c.Request.Context(), req))
}

// ToggleContacted flips a contact's contacted flag.
// PATCH /api/v1/contacts/:id/contacted
func (h *Handler) ToggleContacted(c *gin.Context) {
	result, err := h.svc.ToggleContacted(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// EditName replaces a contact's name.
// PATCH /api/v1/contacts/:id/name
func (h *Handler) EditName(c *gin.Context) {
	var req transport.EditNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.EditName(c.Request.Context(), c.Param("id"), req.Name)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetTemperature sets a contact's classification.
// PATCH /api/v1/contacts/:id/temperature
func (h *Handler) SetTemperature(c *gin.Context) {
	var req transport.SetTemperatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SetTemperature(c.Request.Context(), c.Param("id"), req.Temperature)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetConsultant overrides the consultant on one contact.
// PATCH /api/v1/contacts/:id/consultant
func (h *Handler) SetConsultant(c *gin.Context) {
	var req transport.SetConsultantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SetConsultantFor(c.Request.Context(), c.Param("id"), req.Consultant)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes a contact.
// DELETE /api/v1/contacts/:id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// SetBatchTemperature applies one temperature to many contacts.
// POST /api/v1/contacts/batch/temperature
func (h *Handler) SetBatchTemperature(c *gin.Context) {
	var req transport.BatchTemperatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SetBatchTemperature(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetActiveConsultant changes the global default consultant.
// PUT /api/v1/consultant
func (h *Handler) SetActiveConsultant(c *gin.Context) {
	var req transport.SetConsultantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SetActiveConsultant(c.Request.Context(), req.Consultant)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Consultants lists the roster and active consultant.
// GET /api/v1/consultants
func (h *Handler) Consultants(c *gin.Context) {
	httpkit.OK(c, h.svc.Consultants())
}

// ToggleSelected flips one contact's selection state.
// POST /api/v1/contacts/:id/selection
func (h *Handler) ToggleSelected(c *gin.Context) {
	result, err := h.svc.ToggleSelected(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SelectAll selects every contact, or clears when all are selected.
// POST /api/v1/selection/all
func (h *Handler) SelectAll(c *gin.Context) {
	httpkit.OK(c, h.svc.SelectAll(c.Request.Context()))
}

// ClearSelection empties the selection set.
// DELETE /api/v1/selection
func (h *Handler) ClearSelection(c *gin.Context) {
	httpkit.OK(c, h.svc.ClearSelection(c.Request.Context()))
}

// ExportPhones returns the newline-joined selected phones.
// GET /api/v1/exports/phones
func (h *Handler) ExportPhones(c *gin.Context) {
	result, err := h.svc.ExportPhones()
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ExportContacts returns the newline-joined "name - phone" lines.
// GET /api/v1/exports/contacts
func (h *Handler) ExportContacts(c *gin.Context) {
	result, err := h.svc.ExportContacts()
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// WhatsAppLink composes the outreach link for one contact.
// GET /api/v1/contacts/:id/whatsapp-link
func (h *Handler) WhatsAppLink(c *gin.Context) {
	result, err := h.svc.WhatsAppLink(c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reset discards all local edits and re-imports the source.
// POST /api/v1/reset
func (h *Handler) Reset(c *gin.Context) {
	result, err := h.svc.Reset(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
