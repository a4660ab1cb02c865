// Package contacts provides the contact collection bounded context module:
// the state store, its HTTP surface, and the cross-session reconciler.
package contacts

import (
	"contacts_backend/internal/contacts/domain"
	"contacts_backend/internal/contacts/handler"
	"contacts_backend/internal/contacts/service"
	"contacts_backend/internal/contacts/store"
	"contacts_backend/internal/events"
	apphttp "contacts_backend/internal/http"
	"contacts_backend/internal/whatsapp"
	"contacts_backend/platform/config"
	"contacts_backend/platform/logger"
	"contacts_backend/platform/validator"
)

// Module is the contacts bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	store   *store.Store
}

// NewModule creates and initializes the contacts module with all its dependencies.
func NewModule(cfg config.OutreachConfig, snapshots store.SnapshotRepo, src store.Importer, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	roster := domain.NewRoster(cfg.GetConsultants())
	st := store.New(roster, snapshots, log)
	composer := whatsapp.NewComposer(cfg)
	svc := service.New(st, src, composer, roster, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		store:   st,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "contacts"
}

// Service returns the service layer for the composition root (bootstrap
// and reconciliation wiring).
func (m *Module) Service() *service.Service {
	return m.service
}

// Store returns the underlying state store.
func (m *Module) Store() *store.Store {
	return m.store
}

// RegisterRoutes mounts contact routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	v1 := ctx.V1

	v1.GET("/contacts", m.handler.List)
	v1.POST("/contacts", m.handler.Add)
	v1.PATCH("/contacts/:id/contacted", m.handler.ToggleContacted)
	v1.PATCH("/contacts/:id/name", m.handler.EditName)
	v1.PATCH("/contacts/:id/temperature", m.handler.SetTemperature)
	v1.PATCH("/contacts/:id/consultant", m.handler.SetConsultant)
	v1.DELETE("/contacts/:id", m.handler.Delete)
	v1.POST("/contacts/batch/temperature", m.handler.SetBatchTemperature)

	v1.POST("/contacts/:id/selection", m.handler.ToggleSelected)
	v1.POST("/selection/all", m.handler.SelectAll)
	v1.DELETE("/selection", m.handler.ClearSelection)

	v1.GET("/exports/phones", m.handler.ExportPhones)
	v1.GET("/exports/contacts", m.handler.ExportContacts)
	v1.GET("/contacts/:id/whatsapp-link", m.handler.WhatsAppLink)

	v1.PUT("/consultant", m.handler.SetActiveConsultant)
	v1.GET("/consultants", m.handler.Consultants)

	v1.POST("/reset", m.handler.Reset)
}
