package support

import (
	"os"
	"strings"
	"sync"
)

const (
	envInstanceID     = "PROXYHOME_INSTANCE_ID"
	envInstanceName   = "PROXYHOME_INSTANCE_NAME"
	envInstanceRegion = "PROXYHOME_INSTANCE_REGION"
)

type instanceIdentity struct {
	id     string
	name   string
	region string
}

var (
	identityOnce sync.Once
	identity     instanceIdentity
)

func resolveInstanceIdentity() {
	id := strings.TrimSpace(GetEnv(envInstanceID, ""))
	if id == "" {
		if hostname, err := os.Hostname(); err == nil {
			id = strings.TrimSpace(hostname)
		}
	}
	if id == "" {
		id = "default"
	}

	name := strings.TrimSpace(GetEnv(envInstanceName, ""))
	if name == "" {
		name = id
	}

	region := strings.TrimSpace(GetEnv(envInstanceRegion, ""))
	if region == "" {
		region = "Unknown"
	}

	identity = instanceIdentity{id: id, name: name, region: region}
}

// GetInstanceID identifies this process among its peers. It prefers
// PROXYHOME_INSTANCE_ID, then the hostname, then a static fallback.
func GetInstanceID() string {
	identityOnce.Do(resolveInstanceIdentity)
	return identity.id
}

func GetInstanceName() string {
	identityOnce.Do(resolveInstanceIdentity)
	return identity.name
}

func GetInstanceRegion() string {
	identityOnce.Do(resolveInstanceIdentity)
	return identity.region
}
