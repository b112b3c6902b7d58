package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// RoleStudioUser grants access to every studio endpoint.
const RoleStudioUser = "studio_user"

type Principal struct {
	Name  string
	Roles []string
}

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Principal, bool)
}

type StaticAPIKeyValidator struct {
	keys map[string]Principal
}

// NewStaticAPIKeyValidator parses comma-separated key:name:role|role entries.
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Principal{}}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, principal, err := parseEntry(entry)
		if err != nil {
			return nil, err
		}
		if _, exists := validator.keys[key]; exists {
			return nil, fmt.Errorf("duplicate static key for %q", principal.Name)
		}
		validator.keys[key] = principal
	}
	return validator, nil
}

func parseEntry(entry string) (string, Principal, error) {
	parts := strings.Split(entry, ":")
	if len(parts) != 3 {
		return "", Principal{}, fmt.Errorf("invalid static key entry %q: expected key:name:role|role", entry)
	}
	key := strings.TrimSpace(parts[0])
	name := strings.TrimSpace(parts[1])
	if key == "" || name == "" {
		return "", Principal{}, fmt.Errorf("invalid static key entry %q: empty key/name", entry)
	}
	var roles []string
	for _, role := range strings.Split(parts[2], "|") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return "", Principal{}, fmt.Errorf("invalid static key entry %q: at least one role is required", entry)
	}
	slices.Sort(roles)
	return key, Principal{Name: name, Roles: slices.Compact(roles)}, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Principal, bool) {
	principal, ok := v.keys[apiKey]
	return principal, ok
}

func (v *StaticAPIKeyValidator) Len() int {
	return len(v.keys)
}
