package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"phone", "^city$"})
	if err != nil {
		t.Fatal(err)
	}
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	sessionID := "pii-session"
	session := newSession(sessionID)
	session.Answers["q_phone"] = domain.String("555-0100")
	session.Variables["city"] = domain.String("Pune")
	session.Variables["city_tier"] = domain.String("1")
	session.Variables["goal"] = domain.String("study")

	if err := secureStore.Save(ctx, sessionID, session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !session.Variables["city"].Equal(domain.String("Pune")) {
		t.Error("Middleware modified the caller's session")
	}

	stored, err := underlyingStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}

	masked := domain.String(middleware.Mask)
	if !stored.Answers["q_phone"].Equal(masked) {
		t.Errorf("Phone answer should be masked, got: %v", stored.Answers["q_phone"])
	}
	if !stored.Variables["city"].Equal(masked) {
		t.Errorf("City should be masked, got: %v", stored.Variables["city"])
	}
	if !stored.Variables["city_tier"].Equal(domain.String("1")) {
		t.Error("Anchored pattern should not match city_tier")
	}
	if !stored.Variables["goal"].Equal(domain.String("study")) {
		t.Error("Goal shouldn't be masked")
	}
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]string{"("}); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}

func TestChain_Order(t *testing.T) {
	underlyingStore := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"city"})
	if err != nil {
		t.Fatal(err)
	}
	enc := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	// Masking runs before encryption, so the decrypted session is masked.
	store := middleware.Chain(underlyingStore, pii, enc)

	ctx := context.Background()
	session := newSession("s")
	session.Variables["city"] = domain.String("Pune")
	if err := store.Save(ctx, "s", session); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Variables["city"].Equal(domain.String(middleware.Mask)) {
		t.Errorf("Expected masked city, got %v", loaded.Variables["city"])
	}
}
