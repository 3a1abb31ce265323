package integrationtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/auth"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/config"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/logger"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/service"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/store"
	"gitlab.com/dirk.krummacker/contact-keeper/pkg/model"
)

var issuer = auth.NewIssuer("integration-secret", time.Hour)

// setupRouter connects to the database given by DBHOST, DBUSER and DBPWD. The contacts table
// must exist, see scripts/database.sql. The test is skipped if no database is configured.
func setupRouter(t *testing.T) *gin.Engine {
	if os.Getenv("DBHOST") == "" {
		t.Skip("DBHOST not set")
	}
	conf, err := config.ParseMySQL()
	require.NoError(t, err)
	sqlDB, err := store.OpenMySQL(*conf)
	require.NoError(t, err)
	contacts, err := store.NewMySQL(sqlDB)
	require.NoError(t, err)
	t.Cleanup(func() { contacts.Close() })

	gin.SetMode(gin.ReleaseMode)
	log := logger.NewNop()
	return service.SetupHttpRouter(service.Options{
		Store: contacts,
		Auth:  auth.NewMiddleware(log, issuer),
		Log:   log,
	})
}

// newUser returns a user id that no other test run uses.
func newUser() string {
	return "it-" + uuid.NewString()
}

func send(t *testing.T, router *gin.Engine, method string, url string, user string, body string) *httptest.ResponseRecorder {
	token, err := issuer.Issue(user)
	require.NoError(t, err)
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(method, url, strings.NewReader(body))
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, request)
	return recorder
}

func createContact(t *testing.T, router *gin.Engine, user string, body string) model.Contact {
	recorder := send(t, router, "POST", "/api/contacts", user, body)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	var contact model.Contact
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contact))
	return contact
}

func listContacts(t *testing.T, router *gin.Engine, user string) []model.Contact {
	recorder := send(t, router, "GET", "/api/contacts", user, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var contacts []model.Contact
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contacts))
	return contacts
}

func deleteContact(t *testing.T, router *gin.Engine, user string, id string) {
	recorder := send(t, router, "DELETE", "/api/contacts/"+id, user, "")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

// TestContactHappyPath creates a contact as one user, lets another user try to change it, and
// deletes it as the owner.
func TestContactHappyPath(t *testing.T) {
	router := setupRouter(t)
	owner, stranger := newUser(), newUser()

	contact := createContact(t, router, owner, `{"name": "Alice", "email": "a@x.com", "owner": "`+stranger+`"}`)
	assert.NotEmpty(t, contact.Id)
	assert.Equal(t, owner, contact.Owner)
	assert.Equal(t, "a@x.com", *contact.Email)

	putRecorder := send(t, router, "PUT", "/api/contacts/"+contact.Id, stranger, `{"name": "Bob"}`)
	assert.Equal(t, http.StatusUnauthorized, putRecorder.Code)
	deleteRecorder := send(t, router, "DELETE", "/api/contacts/"+contact.Id, stranger, "")
	assert.Equal(t, http.StatusUnauthorized, deleteRecorder.Code)

	contacts := listContacts(t, router, owner)
	require.Equal(t, 1, len(contacts))
	assert.Equal(t, "Alice", contacts[0].Name)
	assert.Empty(t, listContacts(t, router, stranger))

	deleteContact(t, router, owner, contact.Id)
	assert.Empty(t, listContacts(t, router, owner))

	notFound := send(t, router, "DELETE", "/api/contacts/"+contact.Id, owner, "")
	assert.Equal(t, http.StatusNotFound, notFound.Code)
}

// TestFindContactsNewestFirst creates three contacts and expects them listed in reverse order.
func TestFindContactsNewestFirst(t *testing.T) {
	router := setupRouter(t)
	user := newUser()

	a := createContact(t, router, user, `{"name": "A"}`)
	b := createContact(t, router, user, `{"name": "B"}`)
	c := createContact(t, router, user, `{"name": "C"}`)

	contacts := listContacts(t, router, user)
	require.Equal(t, 3, len(contacts))
	assert.Equal(t, []string{c.Id, b.Id, a.Id}, []string{contacts[0].Id, contacts[1].Id, contacts[2].Id})

	for _, contact := range contacts {
		deleteContact(t, router, user, contact.Id)
	}
}

// TestUpdateContactPartially updates only the name and expects the email to survive, also when
// an empty email is sent.
func TestUpdateContactPartially(t *testing.T) {
	router := setupRouter(t)
	user := newUser()
	contact := createContact(t, router, user, `{"name": "Alice", "email": "a@x.com", "phone": "0815"}`)

	recorder := send(t, router, "PUT", "/api/contacts/"+contact.Id, user, `{"name": "New", "email": ""}`)
	assert.Equal(t, http.StatusOK, recorder.Code)
	var updated model.Contact
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &updated))
	assert.Equal(t, contact.Id, updated.Id)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "a@x.com", *updated.Email)
	assert.Equal(t, "0815", *updated.Phone)
	assert.Nil(t, updated.Type)

	deleteContact(t, router, user, contact.Id)
}

// TestCreateContactInvalidBody expects BAD REQUEST naming the name field.
func TestCreateContactInvalidBody(t *testing.T) {
	router := setupRouter(t)
	user := newUser()
	for _, body := range []string{"", "{}", `{"name": "  "}`, `{"email": "a@x.com"}`} {
		recorder := send(t, router, "POST", "/api/contacts", user, body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, "request body: "+body)
		var response model.ValidationErrors
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, "name", response.Errors[0].Field)
	}
	assert.Empty(t, listContacts(t, router, user))
}

// TestUpdateContactInvalidId expects NOT FOUND for ids that do not exist.
func TestUpdateContactInvalidId(t *testing.T) {
	router := setupRouter(t)
	user := newUser()
	for _, id := range []string{"invalid", "999999999"} {
		recorder := send(t, router, "PUT", "/api/contacts/"+id, user, `{"name": "Rudi"}`)
		assert.Equal(t, http.StatusNotFound, recorder.Code, "id: "+id)
	}
}
