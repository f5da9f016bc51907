package voice

import (
	"fmt"
	"sort"

	"voiceforge/internal/services"
)

// Resolve returns the role configuration for a speaker, falling back through
// gender matches when no exact name mapping exists:
//
//  1. exact speaker-name match in Roles
//  2. first named role whose own Gender matches the segment's gender
//  3. GenderRoles lookup by normalized gender
//
// No fuzzy or partial name matching. A miss on all three is a not-found error
// naming the speaker.
func (c *GenerationConfig) Resolve(speaker, gender string) (RoleConfig, error) {
	if role, ok := c.Roles[speaker]; ok {
		return role, nil
	}

	if normalized := NormalizeGender(gender); normalized != "" {
		for _, name := range sortedRoleNames(c.Roles) {
			if c.Roles[name].Gender == normalized {
				return c.Roles[name], nil
			}
		}
		if role, ok := c.GenderRoles[normalized]; ok {
			return role, nil
		}
	}

	return RoleConfig{}, services.Wrap(services.ErrNotFound, "voice", "resolve role",
		fmt.Sprintf("no voice configuration found for speaker %q; add a role mapping or a matching gender role", speaker), nil)
}

// sortedRoleNames keeps gender-match fallback deterministic across runs
// despite map iteration order.
func sortedRoleNames(roles map[string]RoleConfig) []string {
	names := make([]string, 0, len(roles))
	for name := range roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
