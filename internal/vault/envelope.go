package vault

// Envelope is the stable wire format for sealed data. Byte slices marshal as
// base64 in JSON; the field set and names never change within a version.
type Envelope struct {
	Version    string `json:"version"`
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Tag        []byte `json:"tag"`
}

// macPurpose labels the integrity tag input so a data envelope can never
// verify as a wrapped key or vice versa.
type macPurpose string

const (
	purposeData macPurpose = "data"
	purposeWrap macPurpose = "wrap"
)

// macInput builds the canonical bytes the integrity tag covers:
// purpose || version || nonce || ciphertext. Purpose and version come from
// fixed vocabularies, so plain concatenation is unambiguous.
func macInput(purpose macPurpose, version string, nonce, ciphertext []byte) []byte {
	buf := make([]byte, 0, len(purpose)+len(version)+len(nonce)+len(ciphertext))
	buf = append(buf, purpose...)
	buf = append(buf, version...)
	buf = append(buf, nonce...)
	buf = append(buf, ciphertext...)
	return buf
}
