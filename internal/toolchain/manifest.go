package toolchain

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const manifestName = "pubspec.yaml"

type manifest struct {
	Name string `yaml:"name"`
}

// ProjectName reports whether dir holds a package manifest and, when it
// does, the package name declared in it. Presence of the manifest is what
// triggers dependency priming; the name is only read for operator logs, so
// an unparseable manifest still counts as present.
func ProjectName(dir string) (string, bool) {
	raw, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return "", false
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return "", true
	}
	return m.Name, true
}
