package domain

// AttemptPair is one (credential, server) combination to try.
type AttemptPair struct {
	Credential Credential
	Server     Server
}

// Key returns the de-duplication key for a pair. The same
// (credential fingerprint, server) combination is never tried twice
// within one dispatch.
func (a AttemptPair) Key() string {
	return a.Credential.Fingerprint() + "@" + a.Server.Name
}
