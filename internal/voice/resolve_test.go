package voice

import (
	"errors"
	"strings"
	"testing"

	"voiceforge/internal/services"
)

func testConfig() *GenerationConfig {
	return &GenerationConfig{
		Roles: map[string]RoleConfig{
			"Alice": {VoiceID: "a1", Gender: "female"},
			"Bob":   {VoiceID: "b1", Gender: "male"},
		},
		GenderRoles: map[string]RoleConfig{
			"female": {VoiceID: "any-female", Gender: "female"},
		},
	}
}

func TestResolveExactMatchWins(t *testing.T) {
	role, err := testConfig().Resolve("Alice", "male")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if role.VoiceID != "a1" {
		t.Errorf("voice = %q, want a1 (exact name beats gender)", role.VoiceID)
	}
}

func TestResolveGenderMatchOnNamedRoles(t *testing.T) {
	role, err := testConfig().Resolve("Charlie", "Male")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if role.VoiceID != "b1" {
		t.Errorf("voice = %q, want b1 (Bob is the male named role)", role.VoiceID)
	}
}

func TestResolveGenderRoleFallback(t *testing.T) {
	cfg := testConfig()
	delete(cfg.Roles, "Alice")
	cfg.Roles["Bob"] = RoleConfig{VoiceID: "b1"} // no gender on named roles

	role, err := cfg.Resolve("Dana", " FEMALE ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if role.VoiceID != "any-female" {
		t.Errorf("voice = %q, want any-female", role.VoiceID)
	}
}

func TestResolveUnknownSpeakerFails(t *testing.T) {
	_, err := testConfig().Resolve("Mallory", "")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Mallory") {
		t.Errorf("error should name the speaker: %v", err)
	}
}

func TestResolveUnknownGenderFails(t *testing.T) {
	_, err := testConfig().Resolve("Mallory", "robot")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestResolveDeterministicAcrossCalls(t *testing.T) {
	cfg := &GenerationConfig{Roles: map[string]RoleConfig{
		"Zed":  {VoiceID: "z", Gender: "male"},
		"Adam": {VoiceID: "a", Gender: "male"},
	}}
	for i := 0; i < 20; i++ {
		role, err := cfg.Resolve("Stranger", "male")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if role.VoiceID != "a" {
			t.Fatalf("iteration %d voice = %q, want a (sorted role order)", i, role.VoiceID)
		}
	}
}
