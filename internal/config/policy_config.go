package config

import "strings"

const allowedDomainsVar = "WBCMS_ALLOWED_DOMAINS"

// PolicyConfig holds the local registration policy.
type PolicyConfig interface {
	GetAllowedDomains() []string
}

type Policy struct {
	file *fileConfig
}

var _ PolicyConfig = Policy{}

var defaultAllowedDomains = []string{"students.mak.ac.ug", "cit.mak.ac.ug"}

// GetAllowedDomains reads a comma separated list from the environment.
func (p Policy) GetAllowedDomains() []string {
	if value := GetEnv(allowedDomainsVar, ""); value != "" {
		var domains []string
		for _, d := range strings.Split(value, ",") {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				domains = append(domains, d)
			}
		}
		return domains
	}
	if len(p.file.Policy.AllowedDomains) > 0 {
		return p.file.Policy.AllowedDomains
	}
	return append([]string(nil), defaultAllowedDomains...)
}
