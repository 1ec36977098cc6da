package arena

// The arena environment catalogue. Each entry maps a task's environment type
// to the initial URL the run starts from; config may override it.
var environmentCatalog = map[string]string{
	"omnizon":      "https://omnizon.arena.local",
	"fly_united":   "https://fly-united.arena.local",
	"gomail":       "https://gomail.arena.local",
	"staynb":       "https://staynb.arena.local",
	"dashdish":     "https://dashdish.arena.local",
	"gocalendar":   "https://gocalendar.arena.local",
	"networkin":    "https://networkin.arena.local",
	"udriver":      "https://udriver.arena.local",
	"topwork":      "https://topwork.arena.local",
	"opendining":   "https://opendining.arena.local",
	"zilloft":      "https://zilloft.arena.local",
	"web_browsing": "https://example.com",
}

// SupportedEnvironment reports whether the type is in the catalogue.
func SupportedEnvironment(environmentType string) bool {
	_, ok := environmentCatalog[environmentType]
	return ok
}

// InitialURL returns the start URL for an environment type, honoring a "url"
// override in the environment config.
func InitialURL(environmentType string, config map[string]string) string {
	if url, ok := config["url"]; ok && url != "" {
		return url
	}
	return environmentCatalog[environmentType]
}
