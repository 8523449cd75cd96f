package http

import (
	stdhttp "net/http"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	ts, _, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	ts, _, authService := startTestServer(t)

	token := registerUser(t, ts, "spice", "Spice Route")
	claims, err := authService.ValidateToken(token)
	if err != nil {
		t.Fatalf("register token invalid: %v", err)
	}
	if claims.DisplayName != "Spice Route" {
		t.Fatalf("unexpected display name claim: %q", claims.DisplayName)
	}

	resp := postJSON(t, ts, "/api/login", LoginRequest{Username: "spice", Password: "secret123"})
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("login status: %d", resp.StatusCode)
	}
	var authResp AuthResponse
	decodeJSON(t, resp, &authResp)
	if _, err := authService.ValidateToken(authResp.Token); err != nil {
		t.Fatalf("login token invalid: %v", err)
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	ts, _, _ := startTestServer(t)

	registerUser(t, ts, "spice", "Spice Route")

	resp := postJSON(t, ts, "/api/register", RegisterRequest{
		Username:    "spice",
		DisplayName: "Imposter",
		Password:    "secret123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ts, _, _ := startTestServer(t)

	registerUser(t, ts, "spice", "Spice Route")

	resp := postJSON(t, ts, "/api/login", LoginRequest{Username: "spice", Password: "wrong"})
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	ts, _, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/users/search?q=spice")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestUserSearchWithAuth(t *testing.T) {
	ts, _, _ := startTestServer(t)

	token := registerUser(t, ts, "spice", "Spice Route")
	registerUser(t, ts, "tandoori", "Tandoori House")

	req, err := stdhttp.NewRequest(stdhttp.MethodGet, ts.URL+"/api/users/search?q=Tandoori", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("search status: %d", resp.StatusCode)
	}

	var users []UserResponse
	decodeJSON(t, resp, &users)
	if len(users) != 1 || users[0].DisplayName != "Tandoori House" {
		t.Fatalf("unexpected search result: %+v", users)
	}
}
