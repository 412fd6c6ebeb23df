// Package typereg holds the platform → allowed type-name registry that
// gates ingestion. The registry is operator configuration loaded once at
// startup from a YAML file:
//
//	content_types:
//	  twitter: [tweet, retweet]
//	  instagram: [post, story]
//	presence_types:
//	  twitch: [livestream]
package typereg

import (
	"fmt"
	"os"

	"github.com/dalemusser/trackhub/internal/domain/models"
	"gopkg.in/yaml.v3"
)

// Registry maps platform names to their registered content and presence
// type names. It is read-only after Load.
type Registry struct {
	Content  map[string][]string `yaml:"content_types" json:"content_types"`
	Presence map[string][]string `yaml:"presence_types" json:"presence_types"`
}

// Load reads and validates a registry file. At least one platform must be
// configured; a server that can accept nothing is a misconfiguration worth
// failing startup over.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read types file: %w", err)
	}
	var reg Registry
	if err := yaml.Unmarshal(raw, &reg); err != nil {
		return nil, fmt.Errorf("parse types file %s: %w", path, err)
	}
	if len(reg.Content) == 0 && len(reg.Presence) == 0 {
		return nil, fmt.Errorf("types file %s registers no platforms", path)
	}
	return &reg, nil
}

// Kind reports which kind of data a (platform, type) pair is registered
// as. A type registered as both resolves to content; agents should not do
// that, but the answer must still be deterministic.
func (r *Registry) Kind(platform, typ string) (models.DataKind, bool) {
	if contains(r.Content[platform], typ) {
		return models.KindContent, true
	}
	if contains(r.Presence[platform], typ) {
		return models.KindPresence, true
	}
	return "", false
}

// KnownPlatform reports whether any types are registered for platform.
func (r *Registry) KnownPlatform(platform string) bool {
	return len(r.Content[platform]) > 0 || len(r.Presence[platform]) > 0
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
