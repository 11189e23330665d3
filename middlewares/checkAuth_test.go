package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret-key"

// Helper function to sign a token with the given claims
func signToken(claims jwt.MapClaims, secret string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(secret))
	return tokenString
}

func generateValidToken(subject string, expiresIn time.Duration) string {
	return signToken(jwt.MapClaims{
		"sub": subject,
		"exp": float64(time.Now().Add(expiresIn).Unix()),
	}, testSecret)
}

func generateTokenWithoutExpiry(subject string) string {
	return signToken(jwt.MapClaims{"sub": subject}, testSecret)
}

func generateInvalidSignatureToken(subject string) string {
	return signToken(jwt.MapClaims{
		"sub": subject,
		"exp": float64(time.Now().Add(24 * time.Hour).Unix()),
	}, "wrong-secret-key")
}

func generateNoneAlgToken() string {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "relay",
		"exp": float64(time.Now().Add(time.Hour).Unix()),
	})
	tokenString, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	return tokenString
}

// Setup test Gin context
func setupTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/push/send", nil)
	return c, w
}

// Test CheckAuth middleware
func TestCheckAuth(t *testing.T) {
	tests := []struct {
		name           string
		secret         string
		authHeader     string
		expectedStatus int
		expectAbort    bool
		expectClient   string
	}{
		{
			name:        "auth disabled",
			secret:      "",
			authHeader:  "",
			expectAbort: false,
		},
		{
			name:           "missing authorization header",
			secret:         testSecret,
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
			expectAbort:    true,
		},
		{
			name:           "invalid token format - no Bearer prefix",
			secret:         testSecret,
			authHeader:     "InvalidToken123",
			expectedStatus: http.StatusUnauthorized,
			expectAbort:    true,
		},
		{
			name:           "invalid token format - wrong prefix",
			secret:         testSecret,
			authHeader:     "Basic " + generateValidToken("relay", time.Hour),
			expectedStatus: http.StatusUnauthorized,
			expectAbort:    true,
		},
		{
			name:           "invalid JWT signature",
			secret:         testSecret,
			authHeader:     "Bearer " + generateInvalidSignatureToken("relay"),
			expectedStatus: http.StatusUnauthorized,
			expectAbort:    true,
		},
		{
			name:           "unsigned token",
			secret:         testSecret,
			authHeader:     "Bearer " + generateNoneAlgToken(),
			expectedStatus: http.StatusUnauthorized,
			expectAbort:    true,
		},
		{
			name:           "expired token",
			secret:         testSecret,
			authHeader:     "Bearer " + generateValidToken("relay", -time.Hour),
			expectedStatus: http.StatusUnauthorized,
			expectAbort:    true,
		},
		{
			name:           "token without expiry",
			secret:         testSecret,
			authHeader:     "Bearer " + generateTokenWithoutExpiry("relay"),
			expectedStatus: http.StatusUnauthorized,
			expectAbort:    true,
		},
		{
			name:         "valid token",
			secret:       testSecret,
			authHeader:   "Bearer " + generateValidToken("ha-cloud", time.Hour),
			expectAbort:  false,
			expectClient: "ha-cloud",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := setupTestContext()

			if tt.authHeader != "" {
				c.Request.Header.Set("Authorization", tt.authHeader)
			}

			CheckAuth(tt.secret)(c)

			if tt.expectAbort {
				assert.True(t, c.IsAborted(), "Expected request to be aborted")
				assert.Equal(t, tt.expectedStatus, w.Code)
				assert.Contains(t, w.Body.String(), "Unauthorized")
			} else {
				assert.False(t, c.IsAborted(), "Expected request not to be aborted")
			}

			client, exists := c.Get("relayClient")
			if tt.expectClient != "" {
				assert.True(t, exists)
				assert.Equal(t, tt.expectClient, client)
			} else {
				assert.False(t, exists)
			}
		})
	}
}
