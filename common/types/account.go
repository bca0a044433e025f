package types

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const (
	// AccountSize matches HashSize: accounts here are public-key-sized
	// identifiers, not the reference repository's 20-byte checksummed
	// Address.
	AccountSize = HashSize
)

// Account identifies a chain in the ledger. It is a fixed-width opaque byte
// string; the zero value is the sentinel "none".
type Account [AccountSize]byte

var ZeroAccount = Account{}

func BytesToAccount(b []byte) (Account, error) {
	var a Account
	err := a.SetBytes(b)
	return a, err
}

func HexToAccount(hexstr string) (Account, error) {
	if len(hexstr) != 2*AccountSize {
		return Account{}, fmt.Errorf("error hex account size %v", len(hexstr))
	}
	b, err := hex.DecodeString(hexstr)
	if err != nil {
		return Account{}, err
	}
	return BytesToAccount(b)
}

// RandomAccount draws an account from a cryptographically strong source.
func RandomAccount() Account {
	var a Account
	if _, err := rand.Read(a[:]); err != nil {
		panic(err)
	}
	return a
}

func (a *Account) SetBytes(b []byte) error {
	if len(b) != AccountSize {
		return fmt.Errorf("error account size %v", len(b))
	}
	copy(a[:], b)
	return nil
}

func (a Account) Hex() string {
	return hex.EncodeToString(a[:])
}

func (a Account) Bytes() []byte {
	return a[:]
}

func (a Account) String() string {
	return a.Hex()
}

func (a Account) IsZero() bool {
	return a == ZeroAccount
}

// AsHash reinterprets the account as a Hash, used when a tag's start field
// may carry either type (blocks_by_account queries key off the account
// itself).
func (a Account) AsHash() Hash {
	return Hash(a)
}

func (a *Account) UnmarshalJSON(input []byte) error {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return err
	}
	acc, err := HexToAccount(s)
	if err != nil {
		return err
	}
	*a = acc
	return nil
}

func (a Account) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
