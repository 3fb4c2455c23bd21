package keygen

import (
	"bytes"
	"fmt"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// Encoder turns matching candidates into self-contained armored artifacts.
// The armor headers carry a comment naming the pattern the key was found
// with, so an artifact is understandable on its own.
type Encoder struct {
	comment string
}

// NewEncoder creates an Encoder for keys found with the given pattern text.
func NewEncoder(pattern string) *Encoder {
	return &Encoder{
		comment: fmt.Sprintf("Generated with keyprunk. Regex: %s", pattern),
	}
}

// Encode serializes the candidate as an ASCII-armored private key block
// followed by a newline, so concatenated artifacts stay self-delimited.
//
// A non-empty passphrase encrypts the secret material in place, consuming
// the candidate: the caller must not encode it again afterwards. With no
// passphrase the candidate is left untouched and encoding is byte-for-byte
// reproducible.
func (e *Encoder) Encode(c *Candidate, passphrase []byte) ([]byte, error) {
	if len(passphrase) > 0 {
		if err := encryptSecrets(c.Entity, passphrase); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	headers := map[string]string{"Comment": e.comment}

	aw, err := armor.Encode(&buf, openpgp.PrivateKeyType, headers)
	if err != nil {
		return nil, fmt.Errorf("open armor block: %w", err)
	}
	// The entity was self-signed at generation time; serializing without
	// re-signing keeps those signatures and works on an encrypted key.
	if err := c.Entity.SerializePrivateWithoutSigning(aw, nil); err != nil {
		return nil, fmt.Errorf("serialize key %s: %w", c.Fingerprint, err)
	}
	if err := aw.Close(); err != nil {
		return nil, fmt.Errorf("close armor block: %w", err)
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

func encryptSecrets(entity *openpgp.Entity, passphrase []byte) error {
	if err := entity.PrivateKey.Encrypt(passphrase); err != nil {
		return fmt.Errorf("encrypt primary key: %w", err)
	}
	for i := range entity.Subkeys {
		subkey := &entity.Subkeys[i]
		if subkey.PrivateKey == nil {
			continue
		}
		if err := subkey.PrivateKey.Encrypt(passphrase); err != nil {
			return fmt.Errorf("encrypt subkey: %w", err)
		}
	}
	return nil
}
