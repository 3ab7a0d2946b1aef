package rsd

import "sort"

// UnknownType is emitted for remote types missing from the mapping so that
// unmapped columns stay visible in the generated file.
const UnknownType = "unknown"

// typeMapping translates Xtract Universal column types to the scalar types of
// the CData driver (string, int, double, decimal, datetime). Decimal
// precision and scale travel separately as columnsize and decimaldigits.
var typeMapping = map[string]string{
	"Byte":                   "int",
	"Short":                  "int",
	"Int":                    "int",
	"Long":                   "int",
	"Double":                 "double",
	"Decimal":                "decimal",
	"NumericString":          "string",
	"StringLengthMax":        "string",
	"StringLengthUnknown":    "string",
	"ByteArrayLengthExact":   "string",
	"ByteArrayLengthMax":     "string",
	"ByteArrayLengthUnknown": "string",
	"Date":                   "datetime",
	"ConvertedDate":          "datetime",
	"Time":                   "datetime",
}

// MapType returns the driver type for a remote column type, or UnknownType
func MapType(remoteType string) string {
	if t, ok := typeMapping[remoteType]; ok {
		return t
	}

	return UnknownType
}

// KnownTypes lists the remote types the mapping covers, sorted
func KnownTypes() []string {
	types := make([]string, 0, len(typeMapping))
	for t := range typeMapping {
		types = append(types, t)
	}

	sort.Strings(types)

	return types
}
