package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func testContext(t *testing.T, target string, header string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		c.Request.Header.Set("X-User-ID", header)
	}
	return c
}

func TestGetUserIDReadsHeader(t *testing.T) {
	want := uuid.New()
	c := testContext(t, "/api/actions", want.String())

	got, err := GetUserID(c)
	if err != nil {
		t.Fatalf("expected header to resolve, got %v", err)
	}
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestGetUserIDIgnoresQueryParam(t *testing.T) {
	c := testContext(t, "/api/actions?user_id="+uuid.New().String(), "")

	if _, err := GetUserID(c); err == nil {
		t.Fatal("query param must not identify the user on regular endpoints")
	}
}

func TestGetUserIDRejectsMalformedHeader(t *testing.T) {
	c := testContext(t, "/api/actions", "not-a-uuid")

	if _, err := GetUserID(c); err == nil {
		t.Fatal("expected malformed id to be rejected")
	}
}

func TestGetUserIDAllowQueryAcceptsQueryParam(t *testing.T) {
	want := uuid.New()
	c := testContext(t, "/api/points/ws?user_id="+want.String(), "")

	got, err := GetUserIDAllowQuery(c)
	if err != nil {
		t.Fatalf("expected query param to resolve, got %v", err)
	}
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestGetUserIDAllowQueryPrefersHeader(t *testing.T) {
	want := uuid.New()
	c := testContext(t, "/api/points/ws?user_id="+uuid.New().String(), want.String())

	got, err := GetUserIDAllowQuery(c)
	if err != nil {
		t.Fatalf("expected header to resolve, got %v", err)
	}
	if got != want {
		t.Errorf("header must win over query param: expected %s, got %s", want, got)
	}
}
