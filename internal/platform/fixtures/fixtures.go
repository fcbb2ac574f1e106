// Package fixtures holds the seed data loaded into the in-memory
// repositories at startup.
package fixtures

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var files embed.FS

const (
	Users        = "users.yaml"
	Patients     = "patients.yaml"
	Appointments = "appointments.yaml"
	Inventory    = "inventory.yaml"
	Referrals    = "referrals.yaml"
	Settings     = "settings.yaml"
)

// Decode unmarshals the named fixture into out. Unknown fields are an
// error so typos in seed data surface at startup.
func Decode(name string, out interface{}) error {
	raw, err := files.ReadFile("data/" + name)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", name, err)
	}
	return decode(raw, out, name)
}

func decode(raw []byte, out interface{}, name string) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode fixture %s: %w", name, err)
	}
	return nil
}

// Names lists the embedded fixture files.
func Names() []string {
	entries, err := fs.ReadDir(files, "data")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
