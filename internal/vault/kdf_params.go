//go:build !vaultfast

package vault

// Production Argon2id cost profile. Reducing these requires the vaultfast
// build tag; there is no runtime override.
const (
	kdfTime      uint32 = 4
	kdfMemoryKiB uint32 = 128 * 1024
	kdfThreads   uint8  = 4
)
