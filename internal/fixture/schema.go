package fixture

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// ErrInvalid is matched by every schema violation.
var ErrInvalid = errors.New("invalid fixture")

// ValidationError lists the schema violations found in one document.
type ValidationError struct {
	Name     string
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("fixture %s: %s", e.Name, e.Problems[0])
	}
	return fmt.Sprintf("fixture %s: %d problems, first: %s", e.Name, len(e.Problems), e.Problems[0])
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

//go:embed schema.cue
var schemaSource string

// A cue.Context is not safe for concurrent use; schemaMu serializes Validate.
var (
	schemaMu   sync.Mutex
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile fixture schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Fixture"))
	})
	return schemaCtx, schemaDef, schemaErr
}

// Validate checks data against the fixture schema without decoding it.
func Validate(name string, data []byte) error {
	format, err := formatOf(name)
	if err != nil {
		return err
	}
	schemaMu.Lock()
	defer schemaMu.Unlock()
	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}

	var doc cue.Value
	switch format {
	case "yaml":
		file, err := cueyaml.Extract(name, data)
		if err != nil {
			return &ValidationError{Name: name, Problems: []string{err.Error()}}
		}
		doc = ctx.BuildFile(file)
	case "json":
		expr, err := cuejson.Extract(name, data)
		if err != nil {
			return &ValidationError{Name: name, Problems: []string{err.Error()}}
		}
		doc = ctx.BuildExpr(expr)
	}
	if err := doc.Err(); err != nil {
		return &ValidationError{Name: name, Problems: []string{err.Error()}}
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, e.Error())
		}
		if len(problems) == 0 {
			problems = []string{err.Error()}
		}
		return &ValidationError{Name: name, Problems: problems}
	}
	return nil
}
