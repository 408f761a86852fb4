package config

// Key codes follow the Linux input event codes for the main keyboard block,
// which coincide with PS/2 set-1 scan codes. Profiles may also give raw
// scancode numbers for keys not named here.
var keyCodeByName = map[string]uint16{
	"esc":        1,
	"1":          2,
	"2":          3,
	"3":          4,
	"4":          5,
	"5":          6,
	"6":          7,
	"7":          8,
	"8":          9,
	"9":          10,
	"0":          11,
	"minus":      12,
	"equal":      13,
	"backspace":  14,
	"tab":        15,
	"q":          16,
	"w":          17,
	"e":          18,
	"r":          19,
	"t":          20,
	"y":          21,
	"u":          22,
	"i":          23,
	"o":          24,
	"p":          25,
	"leftbrace":  26,
	"rightbrace": 27,
	"enter":      28,
	"lctrl":      29,
	"a":          30,
	"s":          31,
	"d":          32,
	"f":          33,
	"g":          34,
	"h":          35,
	"j":          36,
	"k":          37,
	"l":          38,
	"semicolon":  39,
	"apostrophe": 40,
	"grave":      41,
	"lshift":     42,
	"backslash":  43,
	"z":          44,
	"x":          45,
	"c":          46,
	"v":          47,
	"b":          48,
	"n":          49,
	"m":          50,
	"comma":      51,
	"dot":        52,
	"slash":      53,
	"rshift":     54,
	"lalt":       56,
	"space":      57,
	"capslock":   58,
	"f1":         59,
	"f2":         60,
	"f3":         61,
	"f4":         62,
	"f5":         63,
	"f6":         64,
	"f7":         65,
	"f8":         66,
	"f9":         67,
	"f10":        68,
	"f11":        87,
	"f12":        88,
	"rctrl":      97,
	"ralt":       100,
	"home":       102,
	"up":         103,
	"pageup":     104,
	"left":       105,
	"right":      106,
	"end":        107,
	"down":       108,
	"pagedown":   109,
	"insert":     110,
	"delete":     111,
	"meta":       125,
}

// Mouse button names map onto the capture package's button identifiers.
var mouseButtonByName = map[string]uint16{
	"left":   1,
	"right":  2,
	"middle": 3,
	"side":   4,
	"extra":  5,
}
