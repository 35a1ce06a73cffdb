package models

// Admin is the verified identity of the caller.
// Built from the identity provider on every request and never stored on its own.
type Admin struct {
	ExternalID  string
	DisplayName string
}
