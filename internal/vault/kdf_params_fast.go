//go:build vaultfast

package vault

// Cheap Argon2id profile for test builds. Never ship binaries built with the
// vaultfast tag.
const (
	kdfTime      uint32 = 1
	kdfMemoryKiB uint32 = 16 * 1024
	kdfThreads   uint8  = 2
)
