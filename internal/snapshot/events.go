package snapshot

// Event names emitted by this package.
const (
	EventSaved    = "snapshot:saved"
	EventReloaded = "snapshot:reloaded"
)

// Saved is the payload of EventSaved.
type Saved struct {
	Path string
}

// Reloaded is the payload of EventReloaded.
type Reloaded struct {
	Path string
	Keys int
}
