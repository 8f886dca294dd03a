package types

// Section is one slice of the wheel.
type Section struct {
	Size  float64 `json:"size" mapstructure:"size"`
	Text  string  `json:"text" mapstructure:"text"`
	Image string  `json:"image,omitempty" mapstructure:"image"`
}

// Settings is the creator-controlled wheel configuration. It is stored and
// broadcast verbatim, the server does not interpret it beyond serialization.
type Settings struct {
	Sections []Section `json:"sections" mapstructure:"sections"`
	Colors   []string  `json:"colors" mapstructure:"colors"`
}

// DefaultSettings returns the wheel configuration a new room starts with.
func DefaultSettings() Settings {
	return Settings{
		Sections: []Section{
			{Size: 1, Text: "One"},
			{Size: 1, Text: "Two"},
			{Size: 1, Text: "Three"},
			{Size: 1, Text: "Four"},
			{Size: 1, Text: "Five"},
			{Size: 1, Text: "Six"},
			{Size: 1, Text: "Seven"},
			{Size: 1, Text: "Eight"},
		},
		Colors: []string{"#efefef", "#cfcfcf"},
	}
}
