// Package instance names the running process in logs and lock owners.
package instance

import (
	"os"

	"github.com/subhub/telecom-subscriptions/pkg/env"
)

// GetID prefers SUBHUB_INSTANCE_ID, then the platform dyno name, then the hostname.
func GetID() string {
	if id := env.First("SUBHUB_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
