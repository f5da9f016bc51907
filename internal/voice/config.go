package voice

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"voiceforge/internal/services"
)

// RoleConfig is the voice configuration for a single speaker or gender slot.
type RoleConfig struct {
	VoiceID            string
	AudioFormat        string
	SpeakingRate       float64
	Pitch              float64
	Gender             string
	ReferenceAudioPath string
	DefaultEmotion     string
	DefaultTone        string
	// Extra carries provider-specific fields forwarded verbatim into the
	// outbound synthesis request body.
	Extra map[string]any
}

// ProviderConfig describes an external synthesis or recognition endpoint.
type ProviderConfig struct {
	BaseURL             string
	APIKey              string
	AppID               string
	AccessKey           string
	TimeoutSeconds      float64
	PollIntervalSeconds float64
	PollTimeoutSeconds  float64
}

// Timeout returns the per-request HTTP timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return secondsToDuration(p.TimeoutSeconds, 30*time.Second)
}

// PollInterval returns the delay between status polls.
func (p ProviderConfig) PollInterval() time.Duration {
	return secondsToDuration(p.PollIntervalSeconds, 2*time.Second)
}

// PollTimeout returns the total polling deadline.
func (p ProviderConfig) PollTimeout() time.Duration {
	return secondsToDuration(p.PollTimeoutSeconds, 180*time.Second)
}

func secondsToDuration(seconds float64, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}

// GenerationConfig aggregates everything one generation job needs: named
// roles, gender fallback roles, and the optional provider. Immutable after
// construction.
type GenerationConfig struct {
	Roles       map[string]RoleConfig
	GenderRoles map[string]RoleConfig
	Provider    *ProviderConfig
}

// knownRoleKeys are the RoleConfig fields with dedicated struct members;
// everything else lands in Extra.
var knownRoleKeys = map[string]struct{}{
	"voice_id":             {},
	"audio_format":         {},
	"speaking_rate":        {},
	"pitch":                {},
	"gender":               {},
	"reference_audio_path": {},
	"default_emotion":      {},
	"default_tone":         {},
}

// ParseGenerationConfig decodes and validates the request-supplied JSON
// document. A missing or non-object "roles" mapping is a validation error; a
// provider without a base_url is treated as absent (mock path).
func ParseGenerationConfig(raw []byte) (*GenerationConfig, error) {
	if len(raw) == 0 {
		return nil, services.Wrap(services.ErrValidation, "voice", "parse config", "missing role configuration JSON", nil)
	}

	var payload struct {
		Roles       map[string]json.RawMessage `json:"roles"`
		GenderRoles map[string]json.RawMessage `json:"gender_roles"`
		Provider    json.RawMessage            `json:"provider"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, services.Wrap(services.ErrValidation, "voice", "parse config", "invalid JSON payload", err)
	}
	if payload.Roles == nil {
		return nil, services.Wrap(services.ErrValidation, "voice", "parse config",
			"configuration must contain a 'roles' mapping of speaker names to settings", nil)
	}

	cfg := &GenerationConfig{
		Roles:       make(map[string]RoleConfig, len(payload.Roles)),
		GenderRoles: make(map[string]RoleConfig, len(payload.GenderRoles)),
	}

	for name, rawRole := range payload.Roles {
		role, err := parseRole(name, rawRole)
		if err != nil {
			return nil, err
		}
		cfg.Roles[name] = role
	}

	for genderKey, rawRole := range payload.GenderRoles {
		normalized := NormalizeGender(genderKey)
		if normalized == "" {
			continue
		}
		role, err := parseRole(genderKey, rawRole)
		if err != nil {
			return nil, err
		}
		role.Gender = normalized
		cfg.GenderRoles[normalized] = role
	}

	if len(payload.Provider) > 0 {
		provider, err := ParseProviderConfig(payload.Provider)
		if err != nil {
			return nil, err
		}
		cfg.Provider = provider
	}

	return cfg, nil
}

// ParseProviderConfig decodes a provider settings object. A blank base_url
// yields nil, which selects the offline mock providers.
func ParseProviderConfig(raw []byte) (*ProviderConfig, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var decoded struct {
		BaseURL             string  `json:"base_url"`
		APIKey              string  `json:"api_key"`
		AppID               string  `json:"app_id"`
		AccessKey           string  `json:"access_key"`
		TimeoutSeconds      float64 `json:"timeout_seconds"`
		PollIntervalSeconds float64 `json:"poll_interval_seconds"`
		PollTimeoutSeconds  float64 `json:"poll_timeout_seconds"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, services.Wrap(services.ErrValidation, "voice", "parse provider", "invalid provider JSON", err)
	}
	if strings.TrimSpace(decoded.BaseURL) == "" {
		return nil, nil
	}
	return &ProviderConfig{
		BaseURL:             strings.TrimRight(strings.TrimSpace(decoded.BaseURL), "/"),
		APIKey:              strings.TrimSpace(decoded.APIKey),
		AppID:               strings.TrimSpace(decoded.AppID),
		AccessKey:           strings.TrimSpace(decoded.AccessKey),
		TimeoutSeconds:      decoded.TimeoutSeconds,
		PollIntervalSeconds: decoded.PollIntervalSeconds,
		PollTimeoutSeconds:  decoded.PollTimeoutSeconds,
	}, nil
}

func parseRole(name string, raw json.RawMessage) (RoleConfig, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return RoleConfig{}, services.Wrap(services.ErrValidation, "voice", "parse role",
			fmt.Sprintf("role %q is not an object", name), err)
	}

	role := RoleConfig{
		AudioFormat:  "mp3",
		SpeakingRate: 1.0,
	}
	role.VoiceID = strings.TrimSpace(stringField(fields, "voice_id"))
	if role.VoiceID == "" {
		return RoleConfig{}, services.Wrap(services.ErrValidation, "voice", "parse role",
			fmt.Sprintf("role %q must define a non-empty 'voice_id'", name), nil)
	}
	if v := strings.TrimSpace(stringField(fields, "audio_format")); v != "" {
		role.AudioFormat = strings.ToLower(v)
	}
	if v, ok := floatField(fields, "speaking_rate"); ok {
		role.SpeakingRate = v
	}
	if v, ok := floatField(fields, "pitch"); ok {
		role.Pitch = v
	}
	role.Gender = NormalizeGender(stringField(fields, "gender"))
	role.ReferenceAudioPath = strings.TrimSpace(stringField(fields, "reference_audio_path"))
	role.DefaultEmotion = strings.TrimSpace(stringField(fields, "default_emotion"))
	role.DefaultTone = strings.TrimSpace(stringField(fields, "default_tone"))

	for key, value := range fields {
		if _, known := knownRoleKeys[key]; known {
			continue
		}
		if role.Extra == nil {
			role.Extra = make(map[string]any)
		}
		role.Extra[key] = value
	}
	return role, nil
}

// NormalizeGender lower-cases and trims a gender value for fallback lookups.
func NormalizeGender(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func floatField(fields map[string]any, key string) (float64, bool) {
	if v, ok := fields[key].(float64); ok {
		return v, true
	}
	return 0, false
}
