package textutil

import (
	"testing"

	"github.com/wesm/mailtui/internal/testutil"
)

func TestEnsureUTF8_AlreadyValid(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"ASCII", []byte("Hello, World!"), "Hello, World!"},
		{"UTF-8 Chinese", []byte("你好世界"), "你好世界"},
		{"UTF-8 Cyrillic", []byte("Привет мир"), "Привет мир"},
		{"UTF-8 emoji", []byte("Hello 👋 World"), "Hello 👋 World"},
		{"table glyphs", []byte("│ 12 │ ✷ │ Re: hi │"), "│ 12 │ ✷ │ Re: hi │"},
		{"empty string", []byte(""), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EnsureUTF8(string(tt.input))
			if result != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
			testutil.AssertValidUTF8(t, result)
		})
	}
}

func TestEnsureUTF8_Windows1252(t *testing.T) {
	enc := testutil.EncodedSamples()
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"smart single quote (right)", enc.Win1252_SmartQuoteRight, "Rand’s Opponent"},
		{"en dash", enc.Win1252_EnDash, "2020 – 2024"},
		{"left double quote", enc.Win1252_DoubleQuotes, "“Hello”"},
		{"euro sign", enc.Win1252_Euro, "Price: €100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EnsureUTF8(string(tt.input))
			if result != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
			testutil.AssertValidUTF8(t, result)
		})
	}
}

func TestEnsureUTF8_Latin1(t *testing.T) {
	enc := testutil.EncodedSamples()
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"o with acute", enc.Latin1_OAcute, "Miró - Picasso"},
		{"c with cedilla", enc.Latin1_CCedilla, "Garçon"},
		{"u with umlaut", enc.Latin1_UUmlaut, "München"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EnsureUTF8(string(tt.input))
			if result != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
			testutil.AssertValidUTF8(t, result)
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"valid", "Hello", "Hello"},
		{"single invalid byte", "Hello\xffWorld", "Hello�World"},
		{"truncated multibyte", "abc\xe4\xb8", "abc��"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeUTF8(tt.input); got != tt.expected {
				t.Errorf("SanitizeUTF8(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetEncodingByName(t *testing.T) {
	known := []string{"windows-1252", "ISO-8859-1", "Shift_JIS", "EUC-KR", "GB18030", "Big5", "KOI8-R"}
	for _, name := range known {
		if GetEncodingByName(name) == nil {
			t.Errorf("GetEncodingByName(%q) = nil, want encoding", name)
		}
	}
	if enc := GetEncodingByName("x-unknown"); enc != nil {
		t.Errorf("GetEncodingByName(unknown) = %v, want nil", enc)
	}
}

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"plain", []byte("  INBOX\n"), "INBOX"},
		{"color codes", []byte("\x1b[1mID\x1b[0m  \x1b[32mSUBJECT\x1b[0m\n"), "ID  SUBJECT"},
		{"latin1 bytes", []byte("M\xfcnchen\n"), "München"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanOutput(tt.input); got != tt.want {
				t.Errorf("CleanOutput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		input    string
		maxRunes int
		want     string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateRunes(tt.input, tt.maxRunes); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
		}
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"single", "single"},
		{"first\nsecond", "first"},
		{"\n\nafter blanks\nmore", "after blanks"},
		{"crlf\r\nnext", "crlf"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FirstLine(tt.input); got != tt.want {
			t.Errorf("FirstLine(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
