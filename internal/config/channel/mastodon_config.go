package channel

// Visibility is the audience scope of a Mastodon status.
type Visibility string

const (
	VisibilityDirect   Visibility = "direct"
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPublic   Visibility = "public"
)

// Visibilities lists every value Mastodon accepts, narrowest first.
var Visibilities = []Visibility{
	VisibilityDirect,
	VisibilityPrivate,
	VisibilityUnlisted,
	VisibilityPublic,
}

// Valid reports whether v is one of Visibilities.
func (v Visibility) Valid() bool {
	for _, known := range Visibilities {
		if v == known {
			return true
		}
	}
	return false
}

func (v Visibility) String() string { return string(v) }

// MastodonConfig configures the destination transport.
type MastodonConfig struct {
	Instance       string     `yaml:"instance"` // e.g. https://mastodon.social
	Token          string     `yaml:"token"`
	Visibility     Visibility `yaml:"visibility"`
	CharacterLimit int        `yaml:"characterLimit"`
}

func DefaultMastodonConfig() MastodonConfig {
	return MastodonConfig{
		Visibility:     VisibilityPublic,
		CharacterLimit: 500,
	}
}
