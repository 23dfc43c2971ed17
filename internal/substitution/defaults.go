package substitution

// DefaultRules returns the stock rule set for music libraries copied off
// legacy Mac and Windows volumes.
//
// Order matters: "#" becomes "No." before the key rules run, so "F#" and
// "FNo." both end up as "F sharp".
func DefaultRules() []Rule {
	return []Rule{
		// characters downstream tools choke on
		{From: "#", To: "No."},
		{From: "/", To: "-"},
		{From: `\`, To: "-"},
		{From: "[", To: ""},
		{From: "]", To: ""},
		{From: ":", To: "-"},

		// whitespace
		{From: "\u00a0", To: " "},

		// quotes
		{From: "''", To: "'"},
		{From: `"`, To: "'"},
		{From: "¿", To: "?"},
		{From: "«", To: "'"},
		{From: "»", To: "'"},
		{From: "“", To: "'"},
		{From: "”", To: "'"},
		{From: "„", To: "'"},
		{From: "‟", To: "'"},
		{From: "‹", To: "'"},
		{From: "›", To: "'"},
		{From: "〝", To: "'"},
		{From: "〞", To: "'"},
		{From: "〟", To: "'"},
		{From: "＂", To: "'"},
		{From: "＇", To: "'"},

		// small form variants
		{From: "﹐", To: "'"},
		{From: "﹑", To: "'"},
		{From: "﹒", To: "-"},
		{From: "﹓", To: "-"},
		{From: "﹔", To: ";"},
		{From: "﹕", To: "-"},
		{From: "﹖", To: "?"},
		{From: "﹗", To: "!"},
		{From: "﹘", To: "-"},
		{From: "﹙", To: "("},
		{From: "﹚", To: ")"},
		{From: "﹛", To: "{"},
		{From: "﹜", To: "}"},
		{From: "﹝", To: ""},
		{From: "﹞", To: ""},
		{From: "﹟", To: "No."},
		{From: "﹠", To: "&"},
		{From: "﹡", To: "*"},
		{From: "﹢", To: "+"},
		{From: "﹣", To: "-"},
		{From: "﹤", To: "<"},
		{From: "﹥", To: ">"},
		{From: "﹦", To: "="},
		{From: "﹧", To: ""},
		{From: "﹨", To: "-"},
		{From: "﹩", To: "$"},
		{From: "﹪", To: "%"},
		{From: "﹫", To: "@"},

		// full-width forms
		{From: "！", To: "!"},

		// bullets and other miscellany
		{From: "‧", To: "-"},
		{From: "№", To: "No."},
		{From: "°", To: "o."},
		{From: "¡E", To: " - "},

		// musical keys
		{From: "FNo.", To: "F sharp"},
		{From: "CNo.", To: "C sharp"},
		{From: "F#", To: "F sharp"},
		{From: "C#", To: "C sharp"},
		{From: "Bb", To: "B flat"},
		{From: "Eb", To: "E flat"},
		{From: "Ab", To: "A flat"},
		{From: "Db", To: "D flat"},
		{From: "Gb", To: "G flat"},
		{From: "Cb", To: "C flat"},
	}
}
