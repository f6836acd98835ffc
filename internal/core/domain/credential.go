package domain

import "time"

// Provenance identifies where a credential came from.
// It affects attempt ordering and logging, never the request itself.
type Provenance string

const (
	ProvenanceSpecific Provenance = "specific" // supplied explicitly by the caller
	ProvenancePersonal Provenance = "personal" // the current user's own token
	ProvenancePool     Provenance = "pool"     // shared session pool token
)

// Credential is an opaque bearer token plus its provenance.
// Credentials are immutable for the duration of one dispatch call.
type Credential struct {
	Token      string
	Provenance Provenance
	CreatedAt  time.Time // pool freshness ranking; zero for personal/specific
}

// Fingerprint returns a short stable identifier for de-duplication and
// logging. The full token value must never appear in logs.
func (c Credential) Fingerprint() string {
	const n = 6
	if len(c.Token) <= n {
		return c.Token
	}
	return c.Token[len(c.Token)-n:]
}

// WithProvenance returns a copy of the credential tagged with p.
func (c Credential) WithProvenance(p Provenance) Credential {
	c.Provenance = p
	return c
}
