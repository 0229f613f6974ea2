// Package pix builds static and dynamic Pix BR-code payloads (the EMV-style
// tag-length-value format standardized by the Brazilian central bank).
package pix

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	tagPayloadFormat    = "00"
	tagMerchantAccount  = "26"
	tagMerchantCategory = "52"
	tagCurrency         = "53"
	tagAmount           = "54"
	tagCountry          = "58"
	tagMerchantName     = "59"
	tagMerchantCity     = "60"
	tagAdditionalData   = "62"
	tagCRC              = "63"

	// sub-fields nested inside merchant account (26) and additional data (62)
	subGUI  = "00"
	subKey  = "01"
	subTxID = "05"

	gui         = "br.gov.bcb.pix"
	currencyBRL = "986" // ISO 4217
	maxNameLen  = 25

	// DefaultTxID is the wildcard reference label for an amount-less,
	// reusable payload.
	DefaultTxID = "***"
)

var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// BuildPayload assembles a Pix BR-code for the given key and merchant.
// A zero or negative amount produces an "any amount" payload (field 54 is
// omitted). Output is deterministic for identical inputs and ends in the
// 4-hex-digit CRC-16/CCITT-FALSE of everything before it.
func BuildPayload(key, merchantName, city string, amount decimal.Decimal, txID string) string {
	if city == "" {
		city = "Cidade"
	}
	if txID == "" {
		txID = DefaultTxID
	}

	account := field(subGUI, gui) + field(subKey, key)

	var b strings.Builder
	b.WriteString(field(tagPayloadFormat, "01"))
	b.WriteString(field(tagMerchantAccount, account))
	b.WriteString(field(tagMerchantCategory, "0000"))
	b.WriteString(field(tagCurrency, currencyBRL))
	if amount.IsPositive() {
		b.WriteString(field(tagAmount, amount.StringFixed(2)))
	}
	b.WriteString(field(tagCountry, "BR"))
	b.WriteString(field(tagMerchantName, normalize(merchantName)))
	b.WriteString(field(tagMerchantCity, normalize(city)))
	b.WriteString(field(tagAdditionalData, field(subTxID, txID)))

	// The CRC tag header is part of the checksummed input.
	b.WriteString(tagCRC + "04")
	payload := b.String()
	return payload + fmt.Sprintf("%04X", Checksum(payload))
}

// Checksum computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF, no final
// XOR) over the payload bytes.
func Checksum(payload string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(payload); i++ {
		crc ^= uint16(payload[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// field renders one tag-length-value element: 2-digit tag, 2-digit
// zero-padded length, value.
func field(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

// normalize strips diacritics and truncates to the 25 characters the BR-code
// name and city fields allow. Truncation counts runes so a multibyte
// character is never split.
func normalize(s string) string {
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		folded = s
	}
	if r := []rune(folded); len(r) > maxNameLen {
		folded = string(r[:maxNameLen])
	}
	return folded
}
