package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

// Credentials holds an explicit service account, either inline JSON or a
// key file path. The zero value means application default credentials.
type Credentials struct {
	JSON []byte
	File string
}

// CredentialsFromEnv prefers GOOGLE_APPLICATION_CREDENTIALS_JSON over
// GOOGLE_APPLICATION_CREDENTIALS. Either variable may hold inline JSON.
func CredentialsFromEnv() Credentials {
	raw := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case raw == "":
		return Credentials{}
	case strings.HasPrefix(raw, "{"):
		return Credentials{JSON: []byte(raw)}
	default:
		return Credentials{File: raw}
	}
}

func (c Credentials) clientOptions() []option.ClientOption {
	switch {
	case len(c.JSON) > 0:
		return []option.ClientOption{option.WithCredentialsJSON(c.JSON)}
	case c.File != "":
		return []option.ClientOption{option.WithCredentialsFile(c.File)}
	default:
		return nil
	}
}
