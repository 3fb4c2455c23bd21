// Package keygen generates candidate OpenPGP keys and encodes matching ones
// as armored private key blocks.
package keygen

import (
	"fmt"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// UserID is the identity attached to generated keys.
type UserID struct {
	Name    string
	Comment string
	Email   string
}

// Candidate is a freshly generated key together with its primary-key
// fingerprint, rendered as uppercase hex with no separators. Whether the
// fingerprint matches the configured pattern is not yet known.
type Candidate struct {
	Entity      *openpgp.Entity
	Fingerprint string
}

// Generator produces Ed25519 OpenPGP keys. Safe for concurrent use: it holds
// no mutable state and every call draws fresh entropy.
type Generator struct {
	uid UserID
}

// NewGenerator creates a Generator. OpenPGP requires a non-empty user ID
// packet, so an entirely empty identity falls back to the tool name.
func NewGenerator(uid UserID) *Generator {
	if uid.Name == "" && uid.Comment == "" && uid.Email == "" {
		uid.Name = "keyprunk"
	}
	return &Generator{uid: uid}
}

// Generate creates a fresh Ed25519 primary key with an X25519 encryption
// subkey. Failure here means the environment cannot produce keys at all
// (exhausted entropy source) and is not retried.
func (g *Generator) Generate() (*Candidate, error) {
	cfg := &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA}

	entity, err := openpgp.NewEntity(g.uid.Name, g.uid.Comment, g.uid.Email, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	return &Candidate{
		Entity:      entity,
		Fingerprint: fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint),
	}, nil
}
