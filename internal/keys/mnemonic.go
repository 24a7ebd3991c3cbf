package keys

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Mnemonic encodes the private scalar as a 24-word recovery phrase. The
// words are the key itself, not a seed for further derivation, so recovery
// reproduces the exact keypair.
func (k *Keypair) Mnemonic() (string, error) {
	mnemonic, err := bip39.NewMnemonic(k.PrivateKeyBytes())
	if err != nil {
		return "", fmt.Errorf("encode mnemonic: %w", err)
	}
	return mnemonic, nil
}

// FromMnemonic restores a keypair from a recovery phrase produced by
// Mnemonic.
func FromMnemonic(mnemonic string) (*Keypair, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	kp, err := FromBytes(entropy)
	if err != nil {
		return nil, fmt.Errorf("%w: phrase does not encode a valid key", ErrInvalidMnemonic)
	}
	return kp, nil
}
