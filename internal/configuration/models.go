package configuration

// Setting names a configurable value and the default used when nothing is
// stored for it.
type Setting struct {
	Key     string
	Default string
}

var (
	InstanceName   = Setting{Key: "instance.name", Default: "Your Instance Name"}
	InstanceURL    = Setting{Key: "instance.url", Default: "http://localhost:8080"}
	InstanceSlogan = Setting{Key: "instance.slogan", Default: "Your Instance Slogan"}
)

// Settings lists every known setting.
var Settings = []Setting{InstanceName, InstanceURL, InstanceSlogan}

// Lookup finds a known setting by key.
func Lookup(key string) (Setting, bool) {
	for _, s := range Settings {
		if s.Key == key {
			return s, true
		}
	}
	return Setting{}, false
}
