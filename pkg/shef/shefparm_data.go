package shef

// Built-in SHEFPARM tables, ported verbatim (values and all) from the NWS
// reference decoder's default tables so that a ParamRegistry built with
// NewParamRegistry() behaves like "shefit" with no SHEFPARM override file.
//
// defaultPEConversions maps a 2-letter Physical Element code to the
// SI(metric)->English unit conversion factor specified in the SHEF manual.
// A factor of -1.0 marks a non-linear conversion (Celsius->Fahrenheit).
// The registry stores these factors; nothing in the package applies them.
var defaultPEConversions = map[string]float64{
	"AD": 1.0, "AF": 1.0, "AG": 1.0, "AM": 1.0, "AT": 1.0, "AU": 1.0, "AW": 1.0,
	"BA": 0.0393701, "BB": 0.0393701, "BC": 0.0393701, "BD": -1.0, "BE": 0.0393701, "BF": 0.0393701, "BG": 1.0,
	"BH": 0.0393701, "BI": 0.0393701, "BJ": 0.0393701, "BK": 0.0393701, "BL": 0.0393701, "BM": 0.0393701, "BN": 0.0393701,
	"BO": 0.0393701, "BP": 0.0393701, "BQ": 0.0393701, "CA": 0.0393701, "CB": 0.0393701, "CC": 0.0393701, "CD": 0.0393701,
	"CE": 0.0393701, "CF": 0.0393701, "CG": 0.0393701, "CH": 0.0393701, "CI": 0.0393701, "CJ": 0.0393701, "CK": 0.0393701,
	"CL": -1.0, "CM": -1.0, "CN": 1.0, "CO": 1.0, "CP": 0.0393701, "CQ": 0.0393701, "CR": 0.0393701,
	"CS": 0.0393701, "CT": 1.0, "CU": -1.0, "CV": -1.0, "CW": 0.0393701, "CX": 0.0393701, "CY": 0.0393701,
	"CZ": 1.0, "EA": 0.0393701, "ED": 0.0393701, "EM": 0.0393701, "EP": 0.0393701, "ER": 0.0393701, "ET": 0.0393701,
	"EV": 0.0393701, "FA": 1.0, "FB": 1.0, "FC": 1.0, "FE": 1.0, "FK": 1.0, "FL": 1.0,
	"FP": 1.0, "FS": 1.0, "FT": 1.0, "FZ": 1.0, "GC": 1.0, "GD": 0.3937008, "GL": 1.0,
	"GP": 0.3937008, "GR": 1.0, "GS": 1.0, "GT": 0.3937008, "GW": 0.3937008, "HA": 3.2808399, "HB": 3.2808399,
	"HC": 3.2808399, "HD": 3.2808399, "HE": 3.2808399, "HF": 3.2808399, "HG": 3.2808399, "HH": 3.2808399, "HI": 1.0,
	"HJ": 3.2808399, "HK": 3.2808399, "HL": 3.2808399, "HM": 3.2808399, "HO": 3.2808399, "HP": 3.2808399, "HQ": 1.0,
	"HR": 3.2808399, "HS": 3.2808399, "HT": 3.2808399, "HU": 3.2808399, "HV": 0.0393701, "HW": 3.2808399, "HZ": 3.2808399,
	"IC": 1.0, "IE": 0.6213712, "IO": 3.2808399, "IR": 1.0, "IT": 0.3937008, "LA": 247.10541, "LC": 0.8107131,
	"LS": 0.8107131, "MD": 1.0, "MI": 1.0, "ML": 0.3937008, "MM": 1.0, "MN": 1.0, "MS": 1.0,
	"MT": -1.0, "MU": 0.3937008, "MV": 1.0, "MW": 1.0, "NC": 1.0, "NG": 3.2808399, "NL": 1.0,
	"NN": 1.0, "NO": 1.0, "NS": 1.0, "PA": 0.295297, "PC": 0.0393701, "PD": 0.295297, "PE": 1.0,
	"PJ": 0.0393701, "PL": 10.0, "PM": 1.0, "PN": 0.0393701, "PP": 0.0393701, "PR": 0.0393701, "PT": 1.0,
	"PY": 0.0393701, "QA": 0.0353147, "QB": 0.0393701, "QC": 0.8107131, "QD": 0.0353147, "QE": 1.0, "QF": 0.6213712,
	"QG": 0.0353147, "QI": 0.0353147, "QL": 0.0353147, "QM": 0.0353147, "QP": 0.0353147, "QR": 0.0353147, "QS": 0.0353147,
	"QT": 0.0353147, "QU": 0.0353147, "QV": 0.8107131, "QZ": 1.0, "RA": 1.0, "RI": 1.0, "RN": 1.0,
	"RP": 1.0, "RT": 1.0, "RW": 1.0, "SA": 1.0, "SB": 0.0393701, "SD": 0.3937008, "SE": -1.0,
	"SF": 0.3937008, "SI": 0.3937008, "SL": 0.0032808, "SM": 0.0393701, "SP": 0.0393701, "SR": 1.0, "SS": 1.0,
	"ST": 1.0, "SU": 0.0393701, "SW": 0.0393701, "TA": -1.0, "TB": 1.0, "TC": -1.0, "TD": -1.0,
	"TE": 1.0, "TF": -1.0, "TH": -1.0, "TJ": -1.0, "TM": -1.0, "TP": -1.0, "TR": -1.0,
	"TS": -1.0, "TV": 1.0, "TW": -1.0, "TZ": -1.0, "UC": 0.6213712, "UD": 1.0, "UE": 1.0,
	"UG": 2.2369363, "UH": 1.0, "UL": 0.6213712, "UP": 1.0, "UQ": 1.0, "UR": 1.0, "US": 2.2369363,
	"UT": 1.0, "VB": 1.0, "VC": 1.0, "VE": 1.0, "VG": 1.0, "VH": 1.0, "VJ": 1.0,
	"VK": 1.0, "VL": 1.0, "VM": 1.0, "VP": 1.0, "VQ": 1.0, "VR": 1.0, "VS": 1.0,
	"VT": 1.0, "VU": 1.0, "VW": 1.0, "WA": 1.0, "WC": 1.0, "WD": 0.3937008, "WG": 0.0393701,
	"WH": 1.0, "WL": 1.0, "WO": 1.0, "WP": 1.0, "WS": 1.0, "WT": 1.0, "WV": 3.2808399,
	"WX": 1.0, "WY": 1.0, "XC": 1.0, "XG": 1.0, "XL": 1.0, "XP": 1.0, "XR": 1.0,
	"XU": 2.2883564, "XV": 0.6213712, "XW": 1.0, "YA": 1.0, "YC": 1.0, "YF": 1.0, "YI": 1.0,
	"YP": 1.0, "YR": 1.0, "YS": 1.0, "YT": 1.0, "YV": 1.0, "YY": 1.0,
}

// defaultDurationCodes maps a 1-letter SHEF duration code to its numeric
// equivalent (minutes for the small codes; 1000+ series codes are looked up
// through durationMinutes, mirroring the reference decoder's own layering).
var defaultDurationCodes = map[byte]int{
	'I': 0, 'U': 1, 'E': 5, 'G': 10, 'C': 15,
	'J': 30, 'H': 1001, 'B': 1002, 'T': 1003, 'F': 1004,
	'Q': 1006, 'A': 1008, 'K': 1012, 'L': 1018, 'D': 2001,
	'W': 2007, 'N': 2015, 'M': 3001, 'Y': 4001, 'Z': 5000,
	'S': 5001, 'R': 5002, 'V': 5003, 'P': 5004, 'X': 5005,
}

// durationMinutes maps the reference decoder's internal duration codes to
// actual minutes. Codes >= 1000 encode a magnitude in their low digits over
// a base unit (hours, days, months, years); -1 marks "variable".
func durationMinutes(code int) int {
	switch {
	case code == 0:
		return -1 // 'I' instantaneous: no meaningful duration window
	case code < 1000:
		return code
	case code >= 1001 && code <= 1999:
		return (code - 1000) * 60
	case code >= 2001 && code <= 2999:
		return (code - 2000) * 1440
	case code >= 3001 && code <= 3999:
		return (code - 3000) * 43200
	case code >= 4001 && code <= 4999:
		return (code - 4000) * 525600
	case code >= 5000:
		return -1 // variable/unknown duration
	default:
		return -1
	}
}

// defaultDurationForPE maps PE codes whose default duration is not "I"
// (instantaneous) to their actual default duration letter. Not overridable
// by a SHEFPARM file (§4.1).
var defaultDurationForPE = map[string]byte{
	"AT": 'D', "AU": 'D', "AW": 'D', "EA": 'D', "EM": 'D',
	"EP": 'D', "ER": 'D', "ET": 'D', "EV": 'D', "LC": 'D',
	"PP": 'D', "PR": 'D', "QC": 'D', "QV": 'D', "RI": 'D',
	"RP": 'D', "RT": 'D', "SF": 'D', "TC": 'S', "TF": 'S',
	"TH": 'S', "UC": 'D', "UL": 'D', "XG": 'J', "XP": 'Q',
}

// durationVariableBase gives the base numeric duration value for each unit
// letter of a variable duration override (DVnxx, §4.3.1). Nothing in the
// package reads this table: a DV token sets only its duration letter.
var durationVariableBase = map[byte]int{
	'S': 7000, 'N': 0, 'H': 1000, 'D': 2000, 'M': 3000, 'Y': 4000,
}

// defaultExtremumCodes is the set of valid 1-letter extremum codes.
var defaultExtremumCodes = map[byte]bool{
	'D': true, 'E': true, 'F': true, 'G': true, 'H': true, 'I': true, 'J': true,
	'K': true, 'L': true, 'M': true, 'N': true, 'P': true, 'R': true, 'S': true,
	'T': true, 'U': true, 'V': true, 'W': true, 'X': true, 'Y': true, 'Z': true,
}

// defaultProbabilityCodes maps a 1-character probability-bucket code to its
// numeric exceedance/non-exceedance value.
var defaultProbabilityCodes = map[byte]float64{
	'A': .002, 'B': .004, 'C': .01, 'D': .02, 'E': .04, 'F': .05,
	'1': .1, '2': .2, 'G': .25, '3': .3, '4': .4, '5': .5,
	'6': .6, '7': .7, 'H': .75, '8': .8, '9': .9, 'T': .95,
	'U': .96, 'V': .98, 'W': .99, 'X': .996, 'Y': .998, 'J': .0013,
	'K': .0228, 'L': .1587, 'M': -0.5, 'N': .8413, 'P': .9772, 'Q': .9987,
	'Z': -1.0,
}

// defaultQualifierCodes is the set of valid 1-letter data-qualifier codes.
var defaultQualifierCodes = map[byte]bool{
	'B': true, 'D': true, 'E': true, 'F': true, 'G': true, 'L': true, 'M': true,
	'N': true, 'P': true, 'Q': true, 'R': true, 'S': true, 'T': true, 'V': true,
	'W': true, 'Z': true,
}

// defaultTypeSourceCodes is the (large, mostly mechanical) set of valid
// 2-character Type+Source codes. Ported from the reference decoder's
// TS_CODES table.
var defaultTypeSourceCodes = buildTSCodes()

func buildTSCodes() map[string]bool {
	raw := []string{
		"12", "13", "14", "15", "16", "17", "18", "19", "1A", "1B", "1C", "1D", "1F", "1G", "1M", "1P", "1R", "1S", "1T", "1V", "1W", "1X",
		"1Z", "22", "23", "24", "25", "26", "27", "28", "29", "2A", "2B", "2C", "2D", "2F", "2G", "2M", "2P", "2R", "2S", "2T", "2V", "2W",
		"2X", "2Z", "32", "33", "34", "35", "36", "37", "38", "39", "3A", "3B", "3C", "3D", "3F", "3G", "3M", "3P", "3R", "3S", "3T", "3V",
		"3W", "3X", "3Z", "42", "43", "44", "45", "46", "47", "48", "49", "4A", "4B", "4C", "4D", "4F", "4G", "4M", "4P", "4R", "4S", "4T",
		"4V", "4W", "4X", "4Z", "52", "53", "54", "55", "56", "57", "58", "59", "5A", "5B", "5C", "5D", "5F", "5G", "5M", "5P", "5R", "5S",
		"5T", "5V", "5W", "5X", "5Z", "62", "63", "64", "65", "66", "67", "68", "69", "6A", "6B", "6C", "6D", "6F", "6G", "6M", "6P", "6R",
		"6S", "6T", "6V", "6W", "6X", "6Z", "72", "73", "74", "75", "76", "77", "78", "79", "7A", "7B", "7C", "7D", "7F", "7G", "7M", "7P",
		"7R", "7S", "7T", "7V", "7W", "7X", "7Z", "82", "83", "84", "85", "86", "87", "88", "89", "8A", "8B", "8C", "8D", "8F", "8G", "8M",
		"8P", "8R", "8S", "8T", "8V", "8W", "8X", "8Z", "92", "93", "94", "95", "96", "97", "98", "99", "9A", "9B", "9C", "9D", "9F", "9G",
		"9M", "9P", "9R", "9S", "9T", "9V", "9W", "9X", "9Z", "C1", "C2", "C3", "C4", "C5", "C6", "C7", "C8", "C9", "CA", "CB", "CC", "CD",
		"CE", "CF", "CG", "CH", "CI", "CJ", "CK", "CL", "CM", "CN", "CO", "CP", "CQ", "CR", "CS", "CT", "CU", "CV", "CW", "CX", "CY", "CZ",
		"FA", "FB", "FC", "FD", "FE", "FF", "FG", "FL", "FM", "FN", "FP", "FQ", "FR", "FU", "FV", "FW", "FX", "FZ", "HA", "HB", "HC", "HD",
		"HE", "HF", "HG", "HH", "HI", "HJ", "HK", "HL", "HM", "HN", "HO", "HP", "HQ", "HR", "HS", "HT", "HU", "HV", "HW", "HX", "HY", "HZ",
		"MA", "MC", "MH", "MK", "MS", "MT", "MW", "P1", "P2", "P3", "PA", "PB", "PC", "PD", "PE", "PF", "PG", "PH", "PI", "PJ", "PK", "PL",
		"PM", "PN", "PO", "PP", "PQ", "PR", "PS", "PT", "PU", "PV", "PW", "PX", "PY", "PZ", "R2", "R3", "R4", "R5", "R6", "R7", "R8", "R9",
		"RA", "RB", "RC", "RD", "RF", "RG", "RM", "RP", "RR", "RS", "RT", "RV", "RW", "RX", "RZ", "ZZ",
	}
	m := make(map[string]bool, len(raw))
	for _, code := range raw {
		m[code] = true
	}
	return m
}

// defaultMaxErrors is the built-in "Max Number Of Errors" SHEFPARM value.
const defaultMaxErrors = 10

// sendCodeDefault maps a 2-letter "send code" to the parameter code it
// expands to and whether it implies a prior-0700-local reset, used when a
// 2-letter body token is not itself a registered PE code.
type sendCodeDefault struct {
	ParamCode string
	Reset0700 bool
}

var defaultSendCodes = map[string]sendCodeDefault{
	"AD": {"ADZZZZZ", false}, "AT": {"ATD", false}, "AU": {"AUD", false}, "AW": {"AWD", false}, "EA": {"EAD", false},
	"EM": {"EMD", false}, "EP": {"EPD", false}, "ER": {"ERD", false}, "ET": {"ETD", false}, "EV": {"EVD", false},
	"HN": {"HGIRZNZ", false}, "HX": {"HGIRZXZ", false}, "HY": {"HGIRZZZ", true}, "LC": {"LCD", false}, "PF": {"PPTCF", false},
	"PY": {"PPDRZZZ", true}, "PP": {"PPD", false}, "PR": {"PRD", false}, "QC": {"QCD", false}, "QN": {"QRIRZNZ", false},
	"QX": {"QRIRZXZ", false}, "QY": {"QRIRZZZ", true}, "SF": {"SFD", false}, "TN": {"TAIRZNZ", false}, "QV": {"QVZ", false},
	"RI": {"RID", false}, "RP": {"RPD", false}, "RT": {"RTD", false}, "TC": {"TCS", false}, "TF": {"TFS", false},
	"TH": {"THS", false}, "TX": {"TAIRZXZ", false}, "UC": {"UCD", false}, "UL": {"ULD", false}, "XG": {"XGJ", false},
	"XP": {"XPQ", false},
}
