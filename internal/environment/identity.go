package environment

import (
	"encoding/hex"

	"golang.org/x/crypto/argon2"

	"github.com/amaydixit11/deltacrdt/internal/core"
)

// identity derivation parameters, chosen the same way the teacher's
// pkg/crypto.FileKeyStore fixes its Argon2 cost for new key material.
const (
	kdfMemory      = 64 * 1024
	kdfIterations  = 3
	kdfParallelism = 1
	kdfKeyLen      = 16
)

// DeriveReplicaID turns an operator-supplied passphrase into a stable
// ReplicaID, salted with salt so the same passphrase used in two
// different deployments does not collide. Unlike a random UUID, a
// derived id is reproducible: the same passphrase and salt always
// yield the same ReplicaID.
func DeriveReplicaID(passphrase []byte, salt []byte) core.ReplicaID {
	sum := argon2.IDKey(passphrase, salt, kdfIterations, kdfMemory, kdfParallelism, kdfKeyLen)
	return core.ReplicaID(hex.EncodeToString(sum))
}
