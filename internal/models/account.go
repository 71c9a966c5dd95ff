package models

import (
	"fmt"
	"strings"
)

// AccountKind identifies which kind of account a principal is.
type AccountKind string

const (
	AccountIndividual   AccountKind = "individual"
	AccountInstitution  AccountKind = "institution"
	AccountOrganization AccountKind = "organization"
)

var validAccountKinds = map[AccountKind]struct{}{
	AccountIndividual:   {},
	AccountInstitution:  {},
	AccountOrganization: {},
}

func ParseAccountKind(raw string) (AccountKind, error) {
	value := AccountKind(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("account kind is required")
	}
	if _, ok := validAccountKinds[value]; !ok {
		return "", fmt.Errorf("invalid account kind: %s", value)
	}
	return value, nil
}

// IDPrefix returns the id prefix assigned to records of this kind.
func (k AccountKind) IDPrefix() string {
	switch k {
	case AccountIndividual:
		return "in"
	case AccountInstitution:
		return "is"
	case AccountOrganization:
		return "or"
	default:
		return ""
	}
}
