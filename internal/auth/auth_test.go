package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/logger"
)

const secret = "test-secret"

// runTest sends a request with the given headers through the middleware and a handler that
// echoes the caller id.
func runTest(headers map[string]string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	mw := NewMiddleware(logger.NewNop(), NewIssuer(secret, time.Hour))
	router.GET("/whoami", mw.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"caller": CallerID(c)})
	})
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
	for k, v := range headers {
		request.Header.Set(k, v)
	}
	router.ServeHTTP(recorder, request)
	return recorder
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

// TestIssueAndVerify verifies that an issued token yields its user id.
func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer(secret, time.Hour)
	token, err := issuer.Issue("u1")
	require.NoError(t, err)

	caller, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", caller)
}

// TestVerifyRejectsForeignSecret verifies that tokens signed with another secret are rejected.
func TestVerifyRejectsForeignSecret(t *testing.T) {
	token, err := NewIssuer("other", time.Hour).Issue("u1")
	require.NoError(t, err)

	_, err = NewIssuer(secret, time.Hour).Verify(token)
	assert.Error(t, err)
}

// TestVerifyRejectsExpired verifies that expired tokens are rejected.
func TestVerifyRejectsExpired(t *testing.T) {
	token, err := NewIssuer(secret, -time.Minute).Issue("u1")
	require.NoError(t, err)

	_, err = NewIssuer(secret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

// TestVerifyRejectsMissingSubject verifies that a token must name a user.
func TestVerifyRejectsMissingSubject(t *testing.T) {
	token, err := NewIssuer(secret, time.Hour).Issue("")
	require.NoError(t, err)

	_, err = NewIssuer(secret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, errNoSubject)
}

// TestVerifyRejectsNoneAlgorithm verifies that unsigned tokens are never accepted.
func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewIssuer(secret, time.Hour).Verify(unsigned)
	assert.Error(t, err)
}

// TestRequireAuthBearer verifies that a bearer token identifies the caller.
func TestRequireAuthBearer(t *testing.T) {
	token, _ := NewIssuer(secret, time.Hour).Issue("u1")
	recorder := runTest(map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "u1", decode(t, recorder)["caller"])
}

// TestRequireAuthLegacyHeader verifies that the x-auth-token header is accepted as well.
func TestRequireAuthLegacyHeader(t *testing.T) {
	token, _ := NewIssuer(secret, time.Hour).Issue("u2")
	recorder := runTest(map[string]string{"x-auth-token": token})
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "u2", decode(t, recorder)["caller"])
}

// TestRequireAuthMissingToken verifies that requests without a token never reach the handler.
func TestRequireAuthMissingToken(t *testing.T) {
	recorder := runTest(nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "no token, authorization denied", decode(t, recorder)["msg"])
}

// TestRequireAuthInvalidToken verifies that garbage tokens are rejected.
func TestRequireAuthInvalidToken(t *testing.T) {
	recorder := runTest(map[string]string{"Authorization": "Bearer not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "token is not valid", decode(t, recorder)["msg"])
}
