package postgres

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/and161185/planner-vault/internal/model"
)

// Storage encoding contract: salts, nonces and ciphertexts are base64 text,
// verification hashes are hex text, item metadata is JSONB. Models carry raw
// bytes; all encoding happens here.

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func unb64(s, col string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", col, err)
	}
	return b, nil
}

func hexs(b []byte) string { return hex.EncodeToString(b) }

func unhex(s, col string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", col, err)
	}
	return b, nil
}

func metaJSON(m model.Metadata) ([]byte, error) { return json.Marshal(m) }

func unmetaJSON(raw []byte) (model.Metadata, error) {
	var m model.Metadata
	if len(raw) == 0 {
		return m, nil
	}
	err := json.Unmarshal(raw, &m)
	return m, err
}
