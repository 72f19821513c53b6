// Package morse holds the static code table shared by the keyer and decoder:
// dot-dash patterns for the alphanumeric set, common punctuation, and the
// procedural signals sent as one unbroken sequence. Lookups are exact
// whole-sequence matches; a prosign pattern is never split into letters.
package morse

import "strings"

// Element is a single keyed element.
type Element int

const (
	Dit Element = iota
	Dah
)

func (e Element) String() string {
	if e == Dah {
		return "dah"
	}
	return "dit"
}

// Unrecognized is emitted when a flushed pattern matches nothing in the table.
const Unrecognized = "�"

// letterPatterns maps characters and punctuation to their dot-dash patterns.
var letterPatterns = map[string]string{
	"A": ".-", "B": "-...", "C": "-.-.", "D": "-..", "E": ".",
	"F": "..-.", "G": "--.", "H": "....", "I": "..", "J": ".---",
	"K": "-.-", "L": ".-..", "M": "--", "N": "-.", "O": "---",
	"P": ".--.", "Q": "--.-", "R": ".-.", "S": "...", "T": "-",
	"U": "..-", "V": "...-", "W": ".--", "X": "-..-", "Y": "-.--",
	"Z": "--..",
	"0": "-----", "1": ".----", "2": "..---", "3": "...--", "4": "....-",
	"5": ".....", "6": "-....", "7": "--...", "8": "---..", "9": "----.",
	".": ".-.-.-", ",": "--..--", "?": "..--..", "/": "-..-.",
	"=": "-...-", "+": ".-.-.", "-": "-....-", "@": ".--.-.",
}

// prosignPatterns maps prosign tokens to their unbroken patterns. These are
// merged after letterPatterns so a prosign wins any pattern collision
// (for example <BT> over "=" and <AR> over "+").
var prosignPatterns = map[string]string{
	"<AR>":  ".-.-.",
	"<BT>":  "-...-",
	"<SK>":  "...-.-",
	"<BK>":  "-...-.-",
	"<SN>":  "...-.",
	"<AA>":  ".-.-",
	"<AS>":  ".-...",
	"<CT>":  "-.-.-",
	"<HH>":  "........",
	"<SOS>": "...---...",
}

var (
	patternToToken = map[string]string{}
	tokenToPattern = map[string]string{}
)

func init() {
	for tok, pat := range letterPatterns {
		patternToToken[pat] = tok
		tokenToPattern[tok] = pat
	}
	for tok, pat := range prosignPatterns {
		patternToToken[pat] = tok
		tokenToPattern[tok] = pat
	}
}

// Decode resolves a complete dot-dash pattern to its token. The match is
// whole-sequence only: "-...-.-" is <BK>, never B plus stray dashes.
func Decode(pattern string) (string, bool) {
	tok, ok := patternToToken[pattern]
	return tok, ok
}

// Pattern returns the canonical dot-dash pattern for a character or prosign
// token. Single characters are case-insensitive.
func Pattern(token string) (string, bool) {
	if len(token) == 1 {
		token = strings.ToUpper(token)
	}
	pat, ok := tokenToPattern[token]
	return pat, ok
}

// IsProsign reports whether the token is a procedural signal.
func IsProsign(token string) bool {
	_, ok := prosignPatterns[token]
	return ok
}

// Tokenize splits drill text into sendable tokens: single characters, spaces,
// and angle-bracketed prosigns kept whole. Characters without a pattern are
// dropped so free-form drill text cannot wedge the player.
func Tokenize(text string) []string {
	var out []string
	runes := []rune(strings.ToUpper(text))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '<' {
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == '>' {
					end = j
					break
				}
			}
			if end > i {
				tok := string(runes[i : end+1])
				if _, ok := tokenToPattern[tok]; ok {
					out = append(out, tok)
				}
				// An unknown bracketed chunk is dropped whole.
				i = end
				continue
			}
			// Unterminated bracket: skip it.
			continue
		}
		if r == ' ' || r == '\t' || r == '\n' {
			if len(out) > 0 && out[len(out)-1] != " " {
				out = append(out, " ")
			}
			continue
		}
		if _, ok := tokenToPattern[string(r)]; ok {
			out = append(out, string(r))
		}
	}
	// Trim a trailing space so playback does not end on a word gap.
	if len(out) > 0 && out[len(out)-1] == " " {
		out = out[:len(out)-1]
	}
	return out
}
