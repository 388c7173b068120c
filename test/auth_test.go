package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"trackcrm/internal/config"
	"trackcrm/internal/repository"
)

func TestRegister(t *testing.T) {
	app := CreateTestApp()

	unique := fmt.Sprintf("testuser_%d", time.Now().UnixNano())
	reqBody := map[string]string{
		"username": unique,
		"email":    unique + "@example.com",
		"password": "secret123",
		"track":    "technology",
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Register request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected status %d but got %d", http.StatusCreated, resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Error decoding register response: %v", err)
	}
	if result["data"] == nil {
		t.Errorf("Expected data field in response")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := CreateTestApp()
	email := RegisterTestUser(app, t, "member", "finance")

	reqBody := map[string]string{
		"username": fmt.Sprintf("other_%d", time.Now().UnixNano()),
		"email":    email,
		"password": "secret123",
		"track":    "finance",
	}
	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Register request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409 for duplicate email, got %d", resp.StatusCode)
	}
}

func TestRegisterUnknownTrack(t *testing.T) {
	app := CreateTestApp()

	unique := fmt.Sprintf("badtrack_%d", time.Now().UnixNano())
	reqBody := map[string]string{
		"username": unique,
		"email":    unique + "@example.com",
		"password": "secret123",
		"track":    "astrology",
	}
	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Register request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown track, got %d", resp.StatusCode)
	}
}

func TestRegisterPresidentRoleRejected(t *testing.T) {
	app := CreateTestApp()

	unique := fmt.Sprintf("wannabe_%d", time.Now().UnixNano())
	reqBody := map[string]string{
		"username": unique,
		"email":    unique + "@example.com",
		"password": "secret123",
		"role":     "president",
		"track":    "technology",
	}
	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Register request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for president registration, got %d", resp.StatusCode)
	}
}

func TestPresidentSeedIdempotent(t *testing.T) {
	app := CreateTestApp()

	repository.CreatePresidentUser(config.DB, "password123")
	repository.CreatePresidentUser(config.DB, "password123")

	var count int
	if err := config.DB.QueryRow("SELECT COUNT(*) FROM users WHERE role = 'president'").Scan(&count); err != nil {
		t.Fatalf("Error counting president rows: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly one president row after seeding twice, got %d", count)
	}

	token := LoginTestUser(app, t, "president@mail.com")
	if token == "" {
		t.Errorf("Expected seeded president to log in")
	}
}

func TestLogin(t *testing.T) {
	app := CreateTestApp()
	email := RegisterTestUser(app, t, "pm", "technology")

	loginBody := map[string]string{
		"email":    email,
		"password": "password123",
	}
	body, _ := json.Marshal(loginBody)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d but got %d", http.StatusOK, resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Error decoding login response: %v", err)
	}
	data, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data field in login response")
	}
	if data["token"] == nil || data["token"] == "" {
		t.Errorf("Expected token in login response")
	}
	if data["role"] != "pm" {
		t.Errorf("Expected role pm, got %v", data["role"])
	}
	if data["track"] != "technology" {
		t.Errorf("Expected track technology, got %v", data["track"])
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	app := CreateTestApp()

	loginBody := map[string]string{
		"email":    fmt.Sprintf("nobody_%d@example.com", time.Now().UnixNano()),
		"password": "password123",
	}
	body, _ := json.Marshal(loginBody)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for unknown email, got %d", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	app := CreateTestApp()
	email := RegisterTestUser(app, t, "member", "education")

	loginBody := map[string]string{
		"email":    email,
		"password": "not-the-password",
	}
	body, _ := json.Marshal(loginBody)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for wrong password, got %d", resp.StatusCode)
	}
}

func TestProfile(t *testing.T) {
	app := CreateTestApp()
	token := NewTestUserToken(app, t, "director", "consulting")

	req := httptest.NewRequest("GET", "/api/v1/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Profile request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 for profile, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Error decoding profile response: %v", err)
	}
	data, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data field in profile response")
	}
	if data["role"] != "director" {
		t.Errorf("Expected role director, got %v", data["role"])
	}
	if data["track"] != "consulting" {
		t.Errorf("Expected track consulting, got %v", data["track"])
	}
}

func TestProfileWithoutToken(t *testing.T) {
	app := CreateTestApp()

	req := httptest.NewRequest("GET", "/api/v1/auth/profile", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Profile request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", resp.StatusCode)
	}
}

func TestProfileWithMalformedToken(t *testing.T) {
	app := CreateTestApp()

	req := httptest.NewRequest("GET", "/api/v1/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Profile request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for malformed token, got %d", resp.StatusCode)
	}
}

func TestUploadProfilePicture(t *testing.T) {
	app := CreateTestApp()
	token := NewTestUserToken(app, t, "member", "technology")

	var b bytes.Buffer
	writer := multipart.NewWriter(&b)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="profile_picture"; filename="testpic.png"`)
	h.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(h)
	if err != nil {
		t.Fatalf("Error creating form part: %v", err)
	}
	// PNG signature as dummy payload
	if _, err := part.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}); err != nil {
		t.Fatalf("Error writing dummy file data: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/api/v1/auth/profile_picture", &b)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Upload request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 for upload, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Error decoding upload response: %v", err)
	}
	data, ok := result["data"].(map[string]interface{})
	if !ok || data["profile_picture"] == nil {
		t.Errorf("Expected profile_picture in response")
	}
}
