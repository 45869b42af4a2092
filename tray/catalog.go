package tray

type Language struct {
	Code  string // ISO-639-1, "auto" to detect
	Label string
}

// Languages the bundled Whisper models transcribe reliably, ordered by
// label.
var Languages = []Language{
	{"auto", "Auto-detect"},
	{"ar", "Arabic"},
	{"bn", "Bengali"},
	{"bg", "Bulgarian"},
	{"ca", "Catalan"},
	{"zh", "Chinese"},
	{"hr", "Croatian"},
	{"cs", "Czech"},
	{"da", "Danish"},
	{"nl", "Dutch"},
	{"en", "English"},
	{"et", "Estonian"},
	{"fi", "Finnish"},
	{"fr", "French"},
	{"de", "German"},
	{"el", "Greek"},
	{"he", "Hebrew"},
	{"hi", "Hindi"},
	{"hu", "Hungarian"},
	{"id", "Indonesian"},
	{"it", "Italian"},
	{"ja", "Japanese"},
	{"ko", "Korean"},
	{"lv", "Latvian"},
	{"lt", "Lithuanian"},
	{"ms", "Malay"},
	{"no", "Norwegian"},
	{"fa", "Persian"},
	{"pl", "Polish"},
	{"pt", "Portuguese"},
	{"ro", "Romanian"},
	{"ru", "Russian"},
	{"sr", "Serbian"},
	{"sk", "Slovak"},
	{"sl", "Slovenian"},
	{"es", "Spanish"},
	{"sv", "Swedish"},
	{"tl", "Tagalog"},
	{"th", "Thai"},
	{"tr", "Turkish"},
	{"uk", "Ukrainian"},
	{"vi", "Vietnamese"},
}

type pickerEntry struct {
	Name  string
	Label string
}

// Backends selectable from the menu. Names match the config values.
var Backends = []pickerEntry{
	{"server", "Whisper server"},
	{"model", "In-process model"},
}

// Models in the catalog, in display order.
var Models = []pickerEntry{
	{"normal", "Normal (fastest)"},
	{"pro", "Pro"},
	{"ultra", "Ultra (most accurate)"},
}
