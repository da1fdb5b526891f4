package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/passdeck/passdeck/internal/models"
	"github.com/passdeck/passdeck/internal/security"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

func seedAdmin(t *testing.T, conn *gorm.DB, username, password string, active bool) {
	t.Helper()
	hashed, errHash := security.HashPassword(password)
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	admin := models.Admin{Username: username, Password: hashed, Active: active}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}
}

func newAuthRouter(conn *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(conn, testJWTSecret)
	router := gin.New()
	router.POST("/v0/auth/login", handler.Login)
	return router
}

func TestLoginSuccess(t *testing.T) {
	conn := setupHandlerDB(t)
	seedAdmin(t, conn, "root", "hunter22", true)
	router := newAuthRouter(conn)

	rec := postJSON(t, router, "/v0/auth/login", gin.H{"username": "root", "password": "hunter22"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var out map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	token, _ := out["token"].(string)
	if token == "" {
		t.Fatalf("expected a token: %v", out)
	}
	claims, errParse := security.ParseAdminToken(testJWTSecret, token)
	if errParse != nil {
		t.Fatalf("parse token: %v", errParse)
	}
	if claims.Username != "root" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	conn := setupHandlerDB(t)
	seedAdmin(t, conn, "root", "hunter22", true)
	router := newAuthRouter(conn)

	rec := postJSON(t, router, "/v0/auth/login", gin.H{"username": "root", "password": "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginDisabledAdmin(t *testing.T) {
	conn := setupHandlerDB(t)
	seedAdmin(t, conn, "root", "hunter22", false)
	router := newAuthRouter(conn)

	rec := postJSON(t, router, "/v0/auth/login", gin.H{"username": "root", "password": "hunter22"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
