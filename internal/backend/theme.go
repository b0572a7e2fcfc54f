package backend

// Theme is a named color scheme. Colors are CSS hex strings.
type Theme struct {
	Name       string
	Foreground string
	Background string
	LineNumber string
	Error      string
	Warning    string
	Info       string
	Hint       string
}

// BuiltinThemes returns the themes available without a module.
func BuiltinThemes() map[string]Theme {
	return map[string]Theme{
		"vs": {
			Name: "vs", Foreground: "#000000", Background: "#ffffff", LineNumber: "#237893",
			Error: "#e51400", Warning: "#bf8803", Info: "#1a85ff", Hint: "#6c6c6c",
		},
		"vs-dark": {
			Name: "vs-dark", Foreground: "#d4d4d4", Background: "#1e1e1e", LineNumber: "#858585",
			Error: "#f14c4c", Warning: "#cca700", Info: "#3794ff", Hint: "#a0a0a0",
		},
		"hc-black": {
			Name: "hc-black", Foreground: "#ffffff", Background: "#000000", LineNumber: "#ffffff",
			Error: "#ff3232", Warning: "#ffd700", Info: "#6fc3df", Hint: "#ffffff",
		},
	}
}
