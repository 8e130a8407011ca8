// Package fixture supplies the parameterized test data scenarios run with:
// user credentials per role, the product catalog snapshot and the checkout
// personal-info payload.
package fixture

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role selects a user's login outcome and downstream behavior.
type Role string

const (
	RoleStandard          Role = "standard_user"
	RoleLockedOut         Role = "locked_out_user"
	RoleProblem           Role = "problem_user"
	RolePerformanceGlitch Role = "performance_glitch_user"
	RoleError             Role = "error_user"
)

// Roles lists every known role.
var Roles = []Role{RoleStandard, RoleLockedOut, RoleProblem, RolePerformanceGlitch, RoleError}

var (
	ErrUnknownRole      = errors.New("unknown role")
	ErrUnknownProduct   = errors.New("unknown product")
	ErrDuplicateProduct = errors.New("duplicate product name")
)

// User is a set of credentials. Role is filled from the fixture key.
type User struct {
	Role     Role   `yaml:"-" json:"-"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

type Product struct {
	Name  string `yaml:"name" json:"name"`
	Price Price  `yaml:"price" json:"price"`
}

type PersonalInfo struct {
	FirstName  string `yaml:"firstName" json:"firstName"`
	LastName   string `yaml:"lastName" json:"lastName"`
	PostalCode string `yaml:"postalCode" json:"postalCode"`
}

// Fixture is one loaded fixture document. It is read-only after Load.
type Fixture struct {
	Users    map[Role]User `yaml:"users" json:"users"`
	Products []Product     `yaml:"products" json:"products"`
	AuthUser PersonalInfo  `yaml:"authUser" json:"authUser"`
}

// User returns the credentials for role.
func (f *Fixture) User(role Role) (User, error) {
	u, ok := f.Users[role]
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	return u, nil
}

// Product looks a product up by name.
func (f *Fixture) Product(name string) (Product, error) {
	for _, p := range f.Products {
		if p.Name == name {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: %q", ErrUnknownProduct, name)
}

// ProductNames lists product names in catalog order.
func (f *Fixture) ProductNames() []string {
	names := make([]string, len(f.Products))
	for i, p := range f.Products {
		names[i] = p.Name
	}
	return names
}

//go:embed example.yaml
var exampleYAML []byte

// Example returns the embedded default fixture.
func Example() *Fixture {
	f, err := Parse("example.yaml", exampleYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded fixture: %v", err))
	}
	return f
}

// Load reads, validates and decodes the fixture at path. The format follows
// the extension: .yaml/.yml or .json.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(filepath.Base(path), data)
}

// Parse validates data against the fixture schema and decodes it. name
// selects the format by extension and labels errors.
func Parse(name string, data []byte) (*Fixture, error) {
	format, err := formatOf(name)
	if err != nil {
		return nil, err
	}
	if err := Validate(name, data); err != nil {
		return nil, err
	}

	var f Fixture
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	}

	for role, u := range f.Users {
		u.Role = role
		f.Users[role] = u
	}

	seen := make(map[string]bool, len(f.Products))
	for _, p := range f.Products {
		if seen[p.Name] {
			return nil, fmt.Errorf("%s: %w: %q", name, ErrDuplicateProduct, p.Name)
		}
		seen[p.Name] = true
	}
	return &f, nil
}

func formatOf(name string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json":
		return "json", nil
	default:
		return "", fmt.Errorf("fixture %s: unsupported format %q", name, ext)
	}
}
