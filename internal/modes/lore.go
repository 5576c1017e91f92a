package modes

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// LoreCode is one numeric code the Mirror model was tuned to recognise.
type LoreCode struct {
	Code string
	Mode string
}

var loreTable = [...]LoreCode{
	{Code: "1635", Mode: "MIRROR_MODE"},
	{Code: "8653", Mode: "SCROLL_MODE"},
	{Code: "4562", Mode: "TOAD_MODE"},
	{Code: "1231", Mode: "CRYPT_MODE"},
	{Code: "9876", Mode: "REVELATION_MODE"},
}

// Decoded meanings of an encryption sequence.
const (
	LoreFull     = "FULL_LORE_ACTIVATED"
	LoreBasic    = "BASIC_REFLECTION"
	LoreDeep     = "DEEP_REVELATION"
	LoreStandard = "STANDARD_MODE"
)

// LoreCodes returns every known code in table order.
func LoreCodes() []LoreCode {
	out := make([]LoreCode, len(loreTable))
	copy(out, loreTable[:])
	return out
}

// LookupLore finds a single code.
func LookupLore(code string) (LoreCode, bool) {
	code = strings.TrimSpace(code)
	for _, c := range loreTable {
		if c.Code == code {
			return c, true
		}
	}
	return LoreCode{}, false
}

// Encryption is a validated sequence of lore codes attached to a request.
// The zero value means no encryption.
type Encryption struct {
	// Code is the normalized sequence, codes separated by single spaces.
	Code    string
	Decoded string
}

// IsZero reports whether no encryption was given.
func (e Encryption) IsZero() bool { return e.Code == "" }

// UnknownLoreCodeError is returned by ParseEncryption for codes outside the table.
type UnknownLoreCodeError struct{ Code string }

func (e *UnknownLoreCodeError) Error() string {
	return fmt.Sprintf("unknown encryption code %q", e.Code)
}

// ParseEncryption validates a space separated sequence of lore codes.
// Blank input yields the zero Encryption.
func ParseEncryption(s string) (Encryption, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Encryption{}, nil
	}
	for _, f := range fields {
		if _, ok := LookupLore(f); !ok {
			return Encryption{}, &UnknownLoreCodeError{Code: f}
		}
	}
	code := strings.Join(fields, " ")
	return Encryption{Code: code, Decoded: decodeLore(code)}, nil
}

func decodeLore(code string) string {
	all := make([]string, len(loreTable))
	for i, c := range loreTable {
		all[i] = c.Code
	}
	switch code {
	case strings.Join(all, " "):
		return LoreFull
	case "1635":
		return LoreBasic
	case "9876":
		return LoreDeep
	}
	return LoreStandard
}

// EncryptionHash is the short fingerprint returned alongside a reply to an
// encrypted request. It is stable for the same query and reply.
func EncryptionHash(query, reply string) string {
	sum := md5.Sum([]byte(query + ":::" + reply + ":::TOADGANG"))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}
