// Package service serves the contacts of the authenticated user over a JSON REST API.
package service

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/auth"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/logger"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/model"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/store"
)

// Options holds the collaborators of the router. Store, Auth and Log are required.
type Options struct {
	Store store.Store
	Auth  *auth.Middleware
	Log   *logger.Logger
	// RequestLogging enables one log entry per request.
	RequestLogging bool
	// CORSOrigins lists the front-end origins allowed to call the API. Empty disables CORS.
	CORSOrigins []string
	// Now is the clock used for creation times. Defaults to time.Now.
	Now func() time.Time
}

type handler struct {
	store store.Store
	log   *logger.Logger
	now   func() time.Time
}

// SetupHttpRouter initializes the REST API router and registers all endpoints.
func SetupHttpRouter(opts Options) *gin.Engine {
	registerValidations()
	h := &handler{store: opts.Store, log: opts.Log, now: opts.Now}
	if h.now == nil {
		h.now = time.Now
	}

	router := gin.New()
	router.Use(requestID(), recovery(opts.Log), instrument())
	if opts.RequestLogging {
		router.Use(requestLogger(opts.Log))
	}
	if len(opts.CORSOrigins) > 0 {
		router.Use(corsPolicy(opts.CORSOrigins))
	}

	router.GET("/healthz", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	contacts := router.Group("/api/contacts", opts.Auth.RequireAuth())
	contacts.GET("", h.findContacts)
	contacts.POST("", h.createContact)
	contacts.PUT("/:id", h.updateContactByID)
	contacts.DELETE("/:id", h.deleteContactByID)
	return router
}

// findContacts responds with the caller's contacts as JSON, newest first.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts --header "Authorization: Bearer $TOKEN"
func (h *handler) findContacts(c *gin.Context) {
	contacts, err := h.store.FindByOwner(c.Request.Context(), auth.CallerID(c))
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// createContact stores the contact specified in the request's JSON for the caller. It responds
// with the full contact including the newly assigned id. The name is required; an owner given
// in the JSON is ignored.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts --request "POST" --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"name": "Erika Mustermann", "email": "erika@example.com", "type": "personal"}'
func (h *handler) createContact(c *gin.Context) {
	var input model.ContactInput
	if err := bindJSON(c, &input); err != nil {
		respondValidation(c, newValidationError(err))
		return
	}
	contact := input.NewContact(auth.CallerID(c), h.now())
	created, err := h.store.Create(c.Request.Context(), contact)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, created)
}

// updateContactByID changes the fields given with a non-empty value in the JSON (and only those)
// of the caller's contact whose id matches the id parameter of the request URL, and responds with
// the new version of the contact.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts/56 --request "PUT" --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"phone": "81970"}'
func (h *handler) updateContactByID(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	caller := auth.CallerID(c)

	var update model.ContactUpdate
	if err := bindJSON(c, &update); err != nil {
		// Strangers and missing contacts are reported as such, whatever the payload.
		if _, errOwned := store.FindOwned(ctx, h.store, id, caller); errOwned != nil {
			h.respondStoreError(c, errOwned)
			return
		}
		respondValidation(c, newValidationError(err))
		return
	}

	contact, err := h.store.UpdateOwned(ctx, id, caller, update)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// deleteContactByID permanently removes the caller's contact whose id matches the id parameter of
// the request URL.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts/56 --request "DELETE" --header "Authorization: Bearer $TOKEN"
func (h *handler) deleteContactByID(c *gin.Context) {
	if err := h.store.DeleteOwned(c.Request.Context(), c.Param("id"), auth.CallerID(c)); err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"msg": "contact removed"})
}

// health reports whether the store can be reached. It needs no authentication.
func (h *handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.log.Warn("health check failed", "error", err)
		c.IndentedJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"status": "ok"})
}

// bindJSON decodes and validates the request body. An empty body is treated like an empty
// object, so that it is reported by field.
func bindJSON(c *gin.Context, obj any) error {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		return binding.Validator.ValidateStruct(obj)
	}
	return err
}
