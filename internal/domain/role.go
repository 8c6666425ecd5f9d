package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleVisitor                Role = "visitor"
	RolePatient                Role = "patient"
	RoleDoctor                 Role = "doctor"
	RoleFrontDeskAdministrator Role = "front_desk_administrator"
	RoleTechSupport            Role = "tech_support"
)

var roleCodes = map[Role]int{
	RoleVisitor:                0,
	RolePatient:                1,
	RoleDoctor:                 2,
	RoleFrontDeskAdministrator: 3,
	RoleTechSupport:            99,
}

// Code returns the numeric code used by legacy clients.
func (r Role) Code() int {
	if c, ok := roleCodes[r]; ok {
		return c
	}
	return -1
}

func (r Role) Valid() bool {
	_, ok := roleCodes[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts the snake_case name, the camelCase name or the numeric code.
func ParseRole(s string) (Role, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	if n, err := strconv.Atoi(norm); err == nil {
		for r, c := range roleCodes {
			if c == n {
				return r, nil
			}
		}
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	switch strings.ReplaceAll(norm, "_", "") {
	case "visitor":
		return RoleVisitor, nil
	case "patient":
		return RolePatient, nil
	case "doctor":
		return RoleDoctor, nil
	case "frontdeskadministrator", "frontdesk":
		return RoleFrontDeskAdministrator, nil
	case "techsupport":
		return RoleTechSupport, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
