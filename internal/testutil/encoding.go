package testutil

import (
	"bytes"
	"reflect"
)

// EncodedSamplesT holds encoded byte sequences for testing charset repair of
// mail program output.
type EncodedSamplesT struct {
	Win1252_SmartQuoteRight []byte
	Win1252_EnDash          []byte
	Win1252_DoubleQuotes    []byte
	Win1252_Euro            []byte
	Latin1_OAcute           []byte
	Latin1_CCedilla         []byte
	Latin1_UUmlaut          []byte
}

var encodedSamples = EncodedSamplesT{
	Win1252_SmartQuoteRight: []byte("Rand\x92s Opponent"),
	Win1252_EnDash:          []byte("2020 \x96 2024"),
	Win1252_DoubleQuotes:    []byte("\x93Hello\x94"),
	Win1252_Euro:            []byte("Price: \x80100"),

	Latin1_OAcute:   []byte("Mir\xf3 - Picasso"),
	Latin1_CCedilla: []byte("Gar\xe7on"),
	Latin1_UUmlaut:  []byte("M\xfcnchen"),
}

// EncodedSamples returns a fresh copy of all encoded byte samples, safe for
// mutation by individual tests.
func EncodedSamples() EncodedSamplesT {
	original := reflect.ValueOf(encodedSamples)
	copyPtr := reflect.New(original.Type())
	copyElem := copyPtr.Elem()

	for i := 0; i < original.NumField(); i++ {
		srcField := original.Field(i)
		if srcField.Kind() == reflect.Slice {
			copyElem.Field(i).SetBytes(bytes.Clone(srcField.Bytes()))
		}
	}

	return copyElem.Interface().(EncodedSamplesT)
}
