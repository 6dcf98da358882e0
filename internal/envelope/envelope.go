// Package envelope serializes typed vault payloads to canonical JSON and
// seals them with the primitive AEAD layer. The codec carries no key
// material of its own.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/and161185/planner-vault/internal/crypto"
	"github.com/and161185/planner-vault/internal/errs"
)

// Kind tags the payload variant inside an encrypted envelope.
type Kind string

const (
	KindCredential  Kind = "credential"
	KindDocument    Kind = "document"
	KindCard        Kind = "card"
	KindBankAccount Kind = "bank_account"
	KindTOTP        Kind = "totp"
)

// Payload is one of the fixed payload variants. Implementations are plain
// structs; Validate runs at encode and decode time so a malformed field bag
// is caught as errs.ErrSerialization, not discovered downstream.
type Payload interface {
	Kind() Kind
	Validate() error
}

// Credential is a login secret.
type Credential struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	URL      string `json:"url,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

func (Credential) Kind() Kind { return KindCredential }

func (c Credential) Validate() error {
	if c.Password == "" {
		return fmt.Errorf("credential: empty password")
	}
	return nil
}

// Document is an encrypted file body with its original name.
type Document struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type,omitempty"`
	Body     []byte `json:"body"`
}

func (Document) Kind() Kind { return KindDocument }

func (d Document) Validate() error {
	if d.FileName == "" {
		return fmt.Errorf("document: empty file name")
	}
	return nil
}

// Card is a payment card.
type Card struct {
	Holder string `json:"holder"`
	Number string `json:"number"`
	Expiry string `json:"expiry"` // MM/YY
	CVV    string `json:"cvv"`
}

func (Card) Kind() Kind { return KindCard }

func (c Card) Validate() error {
	if c.Number == "" {
		return fmt.Errorf("card: empty number")
	}
	return nil
}

// BankAccount is an account/routing pair.
type BankAccount struct {
	Bank    string `json:"bank"`
	Account string `json:"account"`
	Routing string `json:"routing,omitempty"`
	IBAN    string `json:"iban,omitempty"`
}

func (BankAccount) Kind() Kind { return KindBankAccount }

func (b BankAccount) Validate() error {
	if b.Account == "" && b.IBAN == "" {
		return fmt.Errorf("bank account: empty account and iban")
	}
	return nil
}

// TOTPSeed is a stored authenticator secret.
type TOTPSeed struct {
	Issuer  string `json:"issuer,omitempty"`
	Account string `json:"account,omitempty"`
	Secret  string `json:"secret"` // base32
}

func (TOTPSeed) Kind() Kind { return KindTOTP }

func (s TOTPSeed) Validate() error {
	if s.Secret == "" {
		return fmt.Errorf("totp: empty secret")
	}
	return nil
}

// wrapper is the canonical on-the-wire form before sealing.
type wrapper struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode validates and serializes a payload, then seals it under key.
// Returns the ciphertext and the fresh nonce, stored separately at rest.
func Encode(p Payload, key []byte) (ciphertext, nonce []byte, err error) {
	plain, err := Marshal(p)
	if err != nil {
		return nil, nil, err
	}
	return crypto.Encrypt(plain, key)
}

// Decode opens a ciphertext/nonce pair and reconstructs the typed payload.
// AEAD failures surface as errs.ErrDecryption; well-decrypted bytes that do
// not form a known payload surface as errs.ErrSerialization.
func Decode(ciphertext, nonce, key []byte) (Payload, error) {
	plain, err := crypto.Decrypt(ciphertext, nonce, key)
	if err != nil {
		return nil, err
	}
	return Unmarshal(plain)
}

// Marshal produces the canonical plaintext bytes for a payload.
func Marshal(p Payload) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSerialization, err)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSerialization, err)
	}
	return json.Marshal(wrapper{Type: p.Kind(), Data: data})
}

// Unmarshal parses canonical plaintext bytes back into a typed payload.
func Unmarshal(plain []byte) (Payload, error) {
	var w wrapper
	if err := strictUnmarshal(plain, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSerialization, err)
	}

	var p Payload
	switch w.Type {
	case KindCredential:
		p = &Credential{}
	case KindDocument:
		p = &Document{}
	case KindCard:
		p = &Card{}
	case KindBankAccount:
		p = &BankAccount{}
	case KindTOTP:
		p = &TOTPSeed{}
	default:
		return nil, fmt.Errorf("%w: unknown payload type %q", errs.ErrSerialization, w.Type)
	}
	if err := strictUnmarshal(w.Data, p); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSerialization, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSerialization, err)
	}
	return deref(p), nil
}

// strictUnmarshal rejects unknown fields so version skew is caught at the
// codec boundary.
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func deref(p Payload) Payload {
	switch v := p.(type) {
	case *Credential:
		return *v
	case *Document:
		return *v
	case *Card:
		return *v
	case *BankAccount:
		return *v
	case *TOTPSeed:
		return *v
	}
	return p
}
